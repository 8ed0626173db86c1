package encode

import (
	"bytes"
	"testing"
)

func TestHighestPrecompile(t *testing.T) {
	tests := []struct {
		height uint64
		want   []byte
	}{
		{0, mustAddress("0000000000000000000000000000000000000810")},
		{41_121_886, mustAddress("0000000000000000000000000000000000000810")},
		{41_121_887, mustAddress("0000000000000000000000000000000000000811")},
		{42_675_775, mustAddress("0000000000000000000000000000000000000811")},
		{42_675_776, mustAddress("0000000000000000000000000000000000000812")},
		{44_868_475, mustAddress("0000000000000000000000000000000000000812")},
		{44_868_476, mustAddress("0000000000000000000000000000000000000813")},
		{100_000_000, mustAddress("0000000000000000000000000000000000000813")},
	}

	for _, tt := range tests {
		got := HighestPrecompile(tt.height)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("HighestPrecompile(%d) = %x, want %x", tt.height, got, tt.want)
		}
		if len(got) != 20 {
			t.Errorf("HighestPrecompile(%d) has length %d, want 20", tt.height, len(got))
		}
	}
}
