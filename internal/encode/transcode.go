package encode

import (
	"fmt"
)

// Zero-value defaults used when optional header fields are absent.
const (
	zeroHash32 = "0x0000000000000000000000000000000000000000000000000000000000000000"
	zeroNonce8 = "0x0000000000000000"
)

// RPCBlock is the transient JSON view of a block as returned by
// eth_getBlockByNumber with full transaction objects. All quantities stay
// hex strings until transcoding.
type RPCBlock struct {
	Hash                  string           `json:"hash"`
	ParentHash            string           `json:"parentHash"`
	Sha3Uncles            string           `json:"sha3Uncles"`
	Miner                 string           `json:"miner"`
	StateRoot             string           `json:"stateRoot"`
	TransactionsRoot      string           `json:"transactionsRoot"`
	ReceiptsRoot          string           `json:"receiptsRoot"`
	LogsBloom             string           `json:"logsBloom"`
	Difficulty            string           `json:"difficulty"`
	Number                string           `json:"number"`
	GasLimit              string           `json:"gasLimit"`
	GasUsed               string           `json:"gasUsed"`
	Timestamp             string           `json:"timestamp"`
	ExtraData             string           `json:"extraData"`
	MixHash               string           `json:"mixHash"`
	Nonce                 string           `json:"nonce"`
	BaseFeePerGas         string           `json:"baseFeePerGas"`
	WithdrawalsRoot       string           `json:"withdrawalsRoot"`
	BlobGasUsed           string           `json:"blobGasUsed"`
	ExcessBlobGas         string           `json:"excessBlobGas"`
	ParentBeaconBlockRoot string           `json:"parentBeaconBlockRoot"`
	Transactions          []RPCTransaction `json:"transactions"`
}

// RPCTransaction is the JSON view of one transaction inside a block.
type RPCTransaction struct {
	Type                 string           `json:"type"`
	ChainID              string           `json:"chainId"`
	Nonce                string           `json:"nonce"`
	Gas                  string           `json:"gas"`
	GasPrice             string           `json:"gasPrice"`
	MaxFeePerGas         string           `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string           `json:"maxPriorityFeePerGas"`
	To                   string           `json:"to"`
	Value                string           `json:"value"`
	Input                string           `json:"input"`
	AccessList           []RPCAccessTuple `json:"accessList"`
	R                    string           `json:"r"`
	S                    string           `json:"s"`
	V                    string           `json:"v"`
	YParity              string           `json:"yParity"`
}

// RPCAccessTuple is one JSON access-list entry.
type RPCAccessTuple struct {
	Address     string   `json:"address"`
	StorageKeys []string `json:"storageKeys"`
}

// RPCReceipt is the JSON view of one receipt from eth_getBlockReceipts.
type RPCReceipt struct {
	Type              string   `json:"type"`
	Status            string   `json:"status"`
	CumulativeGasUsed string   `json:"cumulativeGasUsed"`
	Logs              []RPCLog `json:"logs"`
}

// RPCLog is one JSON log entry inside a receipt.
type RPCLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Transcode converts a JSON block and its receipts into the archive
// record. It is pure; nothing is written anywhere.
func Transcode(b *RPCBlock, receipts []RPCReceipt) (*BlockRecord, error) {
	if b.Number == "" {
		return nil, fmt.Errorf("block has no number")
	}
	height, err := hexToUint64(b.Number)
	if err != nil {
		return nil, err
	}

	header, err := transcodeHeader(b)
	if err != nil {
		return nil, fmt.Errorf("block %d header: %w", height, err)
	}
	hash, err := hexToRaw(b.Hash)
	if err != nil {
		return nil, fmt.Errorf("block %d hash: %w", height, err)
	}

	txs := make([]TxEnvelope, 0, len(b.Transactions))
	for i := range b.Transactions {
		env, err := transcodeTx(&b.Transactions[i])
		if err != nil {
			return nil, fmt.Errorf("block %d tx %d: %w", height, i, err)
		}
		txs = append(txs, env)
	}

	rcpts := make([]Receipt, 0, len(receipts))
	for i := range receipts {
		r, err := transcodeReceipt(&receipts[i])
		if err != nil {
			return nil, fmt.Errorf("block %d receipt %d: %w", height, i, err)
		}
		rcpts = append(rcpts, r)
	}

	return &BlockRecord{
		Block: VersionedBlock{
			Reth115: SealedBlock{
				Header: SealedHeader{Hash: hash, Header: *header},
				Body: Body{
					Transactions: txs,
					Ommers:       []any{},
					Withdrawals:  []any{},
				},
			},
		},
		Receipts:                 rcpts,
		SystemTxs:                []any{},
		ReadPrecompileCalls:      []any{},
		HighestPrecompileAddress: HighestPrecompile(height),
	}, nil
}

func transcodeHeader(b *RPCBlock) (*Header, error) {
	h := &Header{}
	var err error

	raws := []struct {
		dst *[]byte
		src string
	}{
		{&h.ParentHash, b.ParentHash},
		{&h.Sha3Uncles, b.Sha3Uncles},
		{&h.Miner, b.Miner},
		{&h.StateRoot, b.StateRoot},
		{&h.TransactionsRoot, b.TransactionsRoot},
		{&h.ReceiptsRoot, b.ReceiptsRoot},
		{&h.LogsBloom, b.LogsBloom},
		{&h.ExtraData, b.ExtraData},
		{&h.MixHash, withDefault(b.MixHash, zeroHash32)},
		{&h.Nonce, withDefault(b.Nonce, zeroNonce8)},
		{&h.WithdrawalsRoot, withDefault(b.WithdrawalsRoot, zeroHash32)},
		{&h.ParentBeaconBlockRoot, withDefault(b.ParentBeaconBlockRoot, zeroHash32)},
	}
	for _, f := range raws {
		if *f.dst, err = hexToRaw(f.src); err != nil {
			return nil, err
		}
	}

	fixed := []struct {
		dst   *[]byte
		src   string
		width int
	}{
		{&h.Difficulty, b.Difficulty, 32},
		{&h.Number, b.Number, 8},
		{&h.GasLimit, b.GasLimit, 8},
		{&h.GasUsed, b.GasUsed, 8},
		{&h.Timestamp, b.Timestamp, 8},
		{&h.BaseFeePerGas, b.BaseFeePerGas, 8},
		{&h.BlobGasUsed, b.BlobGasUsed, 8},
		{&h.ExcessBlobGas, b.ExcessBlobGas, 8},
	}
	for _, f := range fixed {
		if *f.dst, err = hexToBytes(f.src, f.width); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func transcodeTx(tx *RPCTransaction) (TxEnvelope, error) {
	sig, err := transcodeSignature(tx)
	if err != nil {
		return TxEnvelope{}, err
	}

	txType, err := hexToUint64(tx.Type)
	if err != nil {
		return TxEnvelope{}, err
	}

	var variant TxVariant
	switch txType {
	case 0:
		variant.Legacy, err = transcodeLegacy(tx)
	case 1:
		variant.AccessList, err = transcodeAccessListTx(tx)
	case 2:
		variant.DynamicFee, err = transcodeDynamicFee(tx)
	default:
		return TxEnvelope{}, fmt.Errorf("unsupported transaction type %d", txType)
	}
	if err != nil {
		return TxEnvelope{}, err
	}

	return TxEnvelope{Signature: sig, Transaction: variant}, nil
}

// transcodeSignature builds the common (r, s, recovery) triple. The
// explicit yParity field wins over the legacy v value when both exist.
func transcodeSignature(tx *RPCTransaction) ([][]byte, error) {
	r, err := hexToBytes(tx.R, 32)
	if err != nil {
		return nil, err
	}
	s, err := hexToBytes(tx.S, 32)
	if err != nil {
		return nil, err
	}
	recovery := tx.YParity
	if recovery == "" {
		recovery = tx.V
	}
	parity, err := hexToBytes(recovery, 8)
	if err != nil {
		return nil, err
	}
	return [][]byte{r, s, parity}, nil
}

func transcodeLegacy(tx *RPCTransaction) (*LegacyTx, error) {
	out := &LegacyTx{}
	var err error
	if out.Nonce, err = hexToBytes(tx.Nonce, 8); err != nil {
		return nil, err
	}
	if out.GasPrice, err = hexToBytes(tx.GasPrice, 16); err != nil {
		return nil, err
	}
	if out.Gas, err = hexToBytes(tx.Gas, 8); err != nil {
		return nil, err
	}
	if out.To, err = hexToRaw(tx.To); err != nil {
		return nil, err
	}
	if out.Value, err = hexToBytes(tx.Value, 32); err != nil {
		return nil, err
	}
	if out.Input, err = hexToRaw(tx.Input); err != nil {
		return nil, err
	}
	return out, nil
}

func transcodeAccessListTx(tx *RPCTransaction) (*AccessListTx, error) {
	out := &AccessListTx{}
	var err error
	if out.ChainID, err = hexToBytes(tx.ChainID, 8); err != nil {
		return nil, err
	}
	if out.Nonce, err = hexToBytes(tx.Nonce, 8); err != nil {
		return nil, err
	}
	if out.GasPrice, err = hexToBytes(tx.GasPrice, 16); err != nil {
		return nil, err
	}
	if out.Gas, err = hexToBytes(tx.Gas, 8); err != nil {
		return nil, err
	}
	if out.To, err = hexToRaw(tx.To); err != nil {
		return nil, err
	}
	if out.Value, err = hexToBytes(tx.Value, 32); err != nil {
		return nil, err
	}
	if out.AccessList, err = transcodeAccessList(tx.AccessList); err != nil {
		return nil, err
	}
	if out.Input, err = hexToRaw(tx.Input); err != nil {
		return nil, err
	}
	return out, nil
}

func transcodeDynamicFee(tx *RPCTransaction) (*DynamicFeeTx, error) {
	out := &DynamicFeeTx{}
	var err error
	if out.ChainID, err = hexToBytes(tx.ChainID, 8); err != nil {
		return nil, err
	}
	if out.Nonce, err = hexToBytes(tx.Nonce, 8); err != nil {
		return nil, err
	}
	if out.Gas, err = hexToBytes(tx.Gas, 8); err != nil {
		return nil, err
	}
	if out.MaxFeePerGas, err = hexToBytes(tx.MaxFeePerGas, 16); err != nil {
		return nil, err
	}
	if out.MaxPriorityFeePerGas, err = hexToBytes(tx.MaxPriorityFeePerGas, 16); err != nil {
		return nil, err
	}
	if out.To, err = hexToRaw(tx.To); err != nil {
		return nil, err
	}
	if out.Value, err = hexToBytes(tx.Value, 32); err != nil {
		return nil, err
	}
	if out.AccessList, err = transcodeAccessList(tx.AccessList); err != nil {
		return nil, err
	}
	if out.Input, err = hexToRaw(tx.Input); err != nil {
		return nil, err
	}
	return out, nil
}

func transcodeAccessList(list []RPCAccessTuple) ([]AccessTuple, error) {
	out := make([]AccessTuple, 0, len(list))
	for _, item := range list {
		addr, err := hexToRaw(item.Address)
		if err != nil {
			return nil, err
		}
		keys := make([][]byte, 0, len(item.StorageKeys))
		for _, k := range item.StorageKeys {
			raw, err := hexToRaw(k)
			if err != nil {
				return nil, err
			}
			keys = append(keys, raw)
		}
		out = append(out, AccessTuple{Address: addr, StorageKeys: keys})
	}
	return out, nil
}

func transcodeReceipt(r *RPCReceipt) (Receipt, error) {
	// Unrecognized receipt types fall back to legacy, unlike transactions
	// where an unknown type is a hard error.
	rcptType, err := hexToUint64(r.Type)
	if err != nil {
		return Receipt{}, err
	}
	tag := "Legacy"
	switch rcptType {
	case 1:
		tag = "Eip2930"
	case 2:
		tag = "Eip1559"
	}

	gas, err := hexToUint64(r.CumulativeGasUsed)
	if err != nil {
		return Receipt{}, err
	}

	logs := make([]Log, 0, len(r.Logs))
	for _, l := range r.Logs {
		addr, err := hexToRaw(l.Address)
		if err != nil {
			return Receipt{}, err
		}
		topics := make([][]byte, 0, len(l.Topics))
		for _, topic := range l.Topics {
			raw, err := hexToRaw(topic)
			if err != nil {
				return Receipt{}, err
			}
			topics = append(topics, raw)
		}
		data, err := hexToRaw(l.Data)
		if err != nil {
			return Receipt{}, err
		}
		logs = append(logs, Log{Address: addr, Data: LogData{Topics: topics, Data: data}})
	}

	return Receipt{
		TxType:            tag,
		Success:           r.Status == "0x1",
		CumulativeGasUsed: gas,
		Logs:              logs,
	}, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
