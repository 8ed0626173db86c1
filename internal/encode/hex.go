package encode

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// hexToBytes decodes a quantity hex string into a big-endian value of
// exactly width bytes. Empty and "0x" decode to zero.
func hexToBytes(h string, width int) ([]byte, error) {
	if h == "" || h == "0x" {
		return make([]byte, width), nil
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(h, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", h)
	}
	if v.BitLen() > width*8 {
		return nil, fmt.Errorf("hex quantity %q overflows %d bytes", h, width)
	}
	return v.FillBytes(make([]byte, width)), nil
}

// hexToRaw decodes a data hex string into raw bytes with no padding.
// Empty and "0x" decode to a zero-length slice. Odd-length payloads get a
// leading zero nibble.
func hexToRaw(h string) ([]byte, error) {
	if h == "" || h == "0x" {
		return []byte{}, nil
	}
	h = strings.TrimPrefix(h, "0x")
	if len(h)%2 != 0 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data %q: %w", h, err)
	}
	return b, nil
}

// hexToUint64 decodes a quantity hex string into a plain integer.
// Empty and "0x" decode to zero.
func hexToUint64(h string) (uint64, error) {
	if h == "" || h == "0x" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(h, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex quantity %q: %w", h, err)
	}
	return v, nil
}
