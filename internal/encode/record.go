// Package encode transcodes live JSON block data into the compact binary
// record stored by the bulk archive: a msgpack document inside an lz4
// frame, bit-identical to the bucket's own encoding.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Header is the fixed-layout block header. Field order matters: msgpack
// map keys are emitted in declaration order and the archive format is
// keyed on it.
type Header struct {
	ParentHash            []byte `msgpack:"parentHash"`
	Sha3Uncles            []byte `msgpack:"sha3Uncles"`
	Miner                 []byte `msgpack:"miner"`
	StateRoot             []byte `msgpack:"stateRoot"`
	TransactionsRoot      []byte `msgpack:"transactionsRoot"`
	ReceiptsRoot          []byte `msgpack:"receiptsRoot"`
	LogsBloom             []byte `msgpack:"logsBloom"`
	Difficulty            []byte `msgpack:"difficulty"` // 32 bytes
	Number                []byte `msgpack:"number"`     // 8 bytes
	GasLimit              []byte `msgpack:"gasLimit"`   // 8 bytes
	GasUsed               []byte `msgpack:"gasUsed"`    // 8 bytes
	Timestamp             []byte `msgpack:"timestamp"`  // 8 bytes
	ExtraData             []byte `msgpack:"extraData"`
	MixHash               []byte `msgpack:"mixHash"`
	Nonce                 []byte `msgpack:"nonce"`
	BaseFeePerGas         []byte `msgpack:"baseFeePerGas"` // 8 bytes
	WithdrawalsRoot       []byte `msgpack:"withdrawalsRoot"`
	BlobGasUsed           []byte `msgpack:"blobGasUsed"`   // 8 bytes
	ExcessBlobGas         []byte `msgpack:"excessBlobGas"` // 8 bytes
	ParentBeaconBlockRoot []byte `msgpack:"parentBeaconBlockRoot"`
}

// SealedHeader pairs a header with its hash.
type SealedHeader struct {
	Hash   []byte `msgpack:"hash"`
	Header Header `msgpack:"header"`
}

// Body carries the block's transactions. Ommers and withdrawals are
// always empty on this chain but stay in the container.
type Body struct {
	Transactions []TxEnvelope `msgpack:"transactions"`
	Ommers       []any        `msgpack:"ommers"`
	Withdrawals  []any        `msgpack:"withdrawals"`
}

// SealedBlock is the header+body pair under the version tag.
type SealedBlock struct {
	Header SealedHeader `msgpack:"header"`
	Body   Body         `msgpack:"body"`
}

// VersionedBlock wraps the block in its schema version tag.
type VersionedBlock struct {
	Reth115 SealedBlock `msgpack:"Reth115"`
}

// TxEnvelope pairs a transaction variant with its signature:
// r (32 bytes), s (32 bytes) and the recovery indicator (8 bytes).
type TxEnvelope struct {
	Signature   [][]byte  `msgpack:"signature"`
	Transaction TxVariant `msgpack:"transaction"`
}

// TxVariant is the 3-way tagged transaction union. Exactly one field is
// set; it encodes as a single-key map tagged by the variant name.
type TxVariant struct {
	Legacy     *LegacyTx
	AccessList *AccessListTx
	DynamicFee *DynamicFeeTx
}

var _ msgpack.CustomEncoder = TxVariant{}
var _ msgpack.CustomDecoder = (*TxVariant)(nil)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v TxVariant) EncodeMsgpack(enc *msgpack.Encoder) error {
	var tag string
	var inner any
	switch {
	case v.Legacy != nil:
		tag, inner = "Legacy", v.Legacy
	case v.AccessList != nil:
		tag, inner = "Eip2930", v.AccessList
	case v.DynamicFee != nil:
		tag, inner = "Eip1559", v.DynamicFee
	default:
		return errors.New("transaction variant is empty")
	}
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(tag); err != nil {
		return err
	}
	return enc.Encode(inner)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *TxVariant) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("transaction variant map has %d keys, want 1", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return err
	}
	switch tag {
	case "Legacy":
		v.Legacy = new(LegacyTx)
		return dec.Decode(v.Legacy)
	case "Eip2930":
		v.AccessList = new(AccessListTx)
		return dec.Decode(v.AccessList)
	case "Eip1559":
		v.DynamicFee = new(DynamicFeeTx)
		return dec.Decode(v.DynamicFee)
	default:
		return fmt.Errorf("unknown transaction variant %q", tag)
	}
}

// LegacyTx is a pre-typed transaction (type 0x0 or untyped).
type LegacyTx struct {
	Nonce    []byte `msgpack:"nonce"`    // 8 bytes
	GasPrice []byte `msgpack:"gasPrice"` // 16 bytes
	Gas      []byte `msgpack:"gas"`      // 8 bytes
	To       []byte `msgpack:"to"`       // 20 bytes or empty for create
	Value    []byte `msgpack:"value"`    // 32 bytes
	Input    []byte `msgpack:"input"`
}

// AccessListTx is an EIP-2930 transaction (type 0x1).
type AccessListTx struct {
	ChainID    []byte        `msgpack:"chainId"`  // 8 bytes
	Nonce      []byte        `msgpack:"nonce"`    // 8 bytes
	GasPrice   []byte        `msgpack:"gasPrice"` // 16 bytes
	Gas        []byte        `msgpack:"gas"`      // 8 bytes
	To         []byte        `msgpack:"to"`
	Value      []byte        `msgpack:"value"` // 32 bytes
	AccessList []AccessTuple `msgpack:"accessList"`
	Input      []byte        `msgpack:"input"`
}

// DynamicFeeTx is an EIP-1559 transaction (type 0x2).
type DynamicFeeTx struct {
	ChainID              []byte        `msgpack:"chainId"`              // 8 bytes
	Nonce                []byte        `msgpack:"nonce"`                // 8 bytes
	Gas                  []byte        `msgpack:"gas"`                  // 8 bytes
	MaxFeePerGas         []byte        `msgpack:"maxFeePerGas"`         // 16 bytes
	MaxPriorityFeePerGas []byte        `msgpack:"maxPriorityFeePerGas"` // 16 bytes
	To                   []byte        `msgpack:"to"`
	Value                []byte        `msgpack:"value"` // 32 bytes
	AccessList           []AccessTuple `msgpack:"accessList"`
	Input                []byte        `msgpack:"input"`
}

// AccessTuple is one access-list entry.
type AccessTuple struct {
	Address     []byte   `msgpack:"address"`
	StorageKeys [][]byte `msgpack:"storageKeys"`
}

// Receipt is the stored transaction receipt.
type Receipt struct {
	TxType            string `msgpack:"tx_type"` // Legacy, Eip2930, Eip1559
	Success           bool   `msgpack:"success"`
	CumulativeGasUsed uint64 `msgpack:"cumulative_gas_used"`
	Logs              []Log  `msgpack:"logs"`
}

// Log is one receipt log entry.
type Log struct {
	Address []byte  `msgpack:"address"`
	Data    LogData `msgpack:"data"`
}

// LogData carries the ordered topics and the raw payload.
type LogData struct {
	Topics [][]byte `msgpack:"topics"`
	Data   []byte   `msgpack:"data"`
}

// BlockRecord is the full per-height record as stored on disk and in the
// bulk bucket.
type BlockRecord struct {
	Block                    VersionedBlock `msgpack:"block"`
	Receipts                 []Receipt      `msgpack:"receipts"`
	SystemTxs                []any          `msgpack:"system_txs"`
	ReadPrecompileCalls      []any          `msgpack:"read_precompile_calls"`
	HighestPrecompileAddress []byte         `msgpack:"highest_precompile_address"`
}

// Encode serializes the record as the archive does: a one-element msgpack
// array compressed into an lz4 frame.
func (r *BlockRecord) Encode() ([]byte, error) {
	var payload bytes.Buffer
	enc := msgpack.NewEncoder(&payload)
	enc.UseCompactInts(true)
	if err := enc.Encode([]*BlockRecord{r}); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	var out bytes.Buffer
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		return nil, fmt.Errorf("compress record: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress record: %w", err)
	}
	return out.Bytes(), nil
}

// Decode parses an encoded cache entry back into a record.
func Decode(data []byte) (*BlockRecord, error) {
	payload, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decompress record: %w", err)
	}

	var records []*BlockRecord
	if err := msgpack.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("record container has %d entries, want 1", len(records))
	}
	return records[0], nil
}
