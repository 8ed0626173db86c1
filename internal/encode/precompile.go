package encode

import "encoding/hex"

// precompileTransition marks a height at which the chain's highest native
// precompile address changed.
type precompileTransition struct {
	Threshold uint64
	Address   []byte
}

// precompileTransitions is ordered newest-first; the first entry whose
// threshold is at or below the height wins.
var precompileTransitions = []precompileTransition{
	{44_868_476, mustAddress("0000000000000000000000000000000000000813")},
	{42_675_776, mustAddress("0000000000000000000000000000000000000812")},
	{41_121_887, mustAddress("0000000000000000000000000000000000000811")},
	{0, mustAddress("0000000000000000000000000000000000000810")},
}

// HighestPrecompile returns the highest applicable precompile address at
// the given height.
func HighestPrecompile(height uint64) []byte {
	for _, t := range precompileTransitions {
		if height >= t.Threshold {
			return t.Address
		}
	}
	return precompileTransitions[len(precompileTransitions)-1].Address
}

func mustAddress(h string) []byte {
	b, err := hex.DecodeString(h)
	if err != nil {
		panic(err)
	}
	return b
}
