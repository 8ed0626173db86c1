package domain

import (
	"fmt"
	"path"
)

const (
	// FileExt is the extension pair carried by every cache entry:
	// msgpack record inside an lz4 frame.
	FileExt = ".rmp.lz4"

	millionsSpan  = 1_000_000
	thousandsSpan = 1_000
)

// ShardKey addresses one thousands-directory in the block cache.
// The same key doubles as the relative object prefix in the bulk bucket.
type ShardKey struct {
	Millions  uint64
	Thousands uint64
}

// ShardFor maps a block height to its shard using (height-1) bucketing.
// Height 0 is special-cased into shard (0, 0). For every other height the
// buckets are derived from height-1, so an exact multiple of 1000 lands in
// the previous thousands-directory (45_000_000 lives under 44_999_000).
func ShardFor(height uint64) ShardKey {
	if height == 0 {
		return ShardKey{}
	}
	return ShardKey{
		Millions:  (height - 1) / millionsSpan * millionsSpan,
		Thousands: (height - 1) / thousandsSpan * thousandsSpan,
	}
}

// RelPath returns the slash-separated relative path of a height's cache
// entry. It is identical for the local tree and the bulk bucket key.
func RelPath(height uint64) string {
	s := ShardFor(height)
	return path.Join(
		fmt.Sprintf("%d", s.Millions),
		fmt.Sprintf("%d", s.Thousands),
		fmt.Sprintf("%d%s", height, FileExt),
	)
}

// Heights enumerates the block heights that map to this shard, clipped to
// [1, latest]. The result is a contiguous span of at most 1000 heights.
func (s ShardKey) Heights(latest uint64) []uint64 {
	heights := make([]uint64, 0, thousandsSpan)
	for h := s.Thousands + 1; h <= s.Thousands+thousandsSpan; h++ {
		if h > latest {
			break
		}
		if ShardFor(h) == s {
			heights = append(heights, h)
		}
	}
	return heights
}

func (s ShardKey) String() string {
	return fmt.Sprintf("%d/%d", s.Millions, s.Thousands)
}

// ShardWindows returns the shards whose height spans intersect
// [start, end], in ascending order.
func ShardWindows(start, end uint64) []ShardKey {
	if end == 0 {
		return nil
	}
	var mStart, tStart uint64
	if start > 0 {
		mStart = (start - 1) / millionsSpan * millionsSpan
		tStart = (start - 1) / thousandsSpan * thousandsSpan
	}
	mEnd := (end - 1) / millionsSpan * millionsSpan
	tEnd := (end - 1) / thousandsSpan * thousandsSpan

	var shards []ShardKey
	for m := mStart; m <= mEnd; m += millionsSpan {
		lo := m
		if tStart > lo && m == mStart {
			lo = tStart
		}
		hi := m + millionsSpan - thousandsSpan
		if tEnd < hi {
			hi = tEnd
		}
		for t := lo; t <= hi; t += thousandsSpan {
			shards = append(shards, ShardKey{Millions: m, Thousands: t})
		}
	}
	return shards
}
