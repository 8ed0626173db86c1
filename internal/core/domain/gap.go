package domain

import "sort"

// ShardGap summarizes one incomplete shard found by a scan.
type ShardGap struct {
	Shard    ShardKey
	Missing  int
	Expected int
}

// GapReport is the outcome of scanning a height range for missing
// cache entries.
type GapReport struct {
	Start    uint64
	End      uint64
	Expected uint64
	Missing  []uint64
	Shards   []ShardGap
}

// MissingCount returns the number of absent heights in the scanned range.
func (r *GapReport) MissingCount() int {
	return len(r.Missing)
}

// Complete reports whether every expected height was present.
func (r *GapReport) Complete() bool {
	return len(r.Missing) == 0
}

// Completeness returns the present fraction as a percentage. An empty
// range counts as fully complete.
func (r *GapReport) Completeness() float64 {
	if r.Expected == 0 {
		return 100
	}
	return 100 * (1 - float64(len(r.Missing))/float64(r.Expected))
}

// WorstShards returns up to n incomplete shards ordered by missing count,
// highest first.
func (r *GapReport) WorstShards(n int) []ShardGap {
	worst := make([]ShardGap, len(r.Shards))
	copy(worst, r.Shards)
	sort.Slice(worst, func(i, j int) bool {
		return worst[i].Missing > worst[j].Missing
	})
	if len(worst) > n {
		worst = worst[:n]
	}
	return worst
}
