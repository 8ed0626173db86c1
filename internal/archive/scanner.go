package archive

import (
	"context"
	"log/slog"

	"github.com/evmstore/blockcache/internal/core/domain"
	"github.com/evmstore/blockcache/internal/metrics"
)

// Scanner checks a height range against the store and reports gaps.
type Scanner struct {
	store *Store
	chain string
	log   *slog.Logger
}

// NewScanner creates a scanner over the given store. chain labels
// metrics and log lines.
func NewScanner(store *Store, chain string) *Scanner {
	return &Scanner{
		store: store,
		chain: chain,
		log:   slog.Default().With("component", "scanner", "chain", chain),
	}
}

// Scan walks the shard windows covering [start, end] and returns a
// GapReport. Existence checks are sequential; progress is logged once per
// millions directory.
func (s *Scanner) Scan(ctx context.Context, start, end uint64) (*domain.GapReport, error) {
	report := &domain.GapReport{Start: start, End: end}
	if end == 0 || start > end {
		return report, nil
	}

	lastMillions := uint64(0)
	started := false
	for _, shard := range domain.ShardWindows(start, end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if started && shard.Millions != lastMillions {
			s.logProgress(lastMillions, report)
		}
		lastMillions = shard.Millions
		started = true

		expected := shard.Heights(end)
		if len(expected) == 0 {
			continue
		}
		report.Expected += uint64(len(expected))

		var missing int
		for _, h := range expected {
			if !s.store.Exists(h) {
				report.Missing = append(report.Missing, h)
				missing++
			}
		}
		if missing > 0 {
			report.Shards = append(report.Shards, domain.ShardGap{
				Shard:    shard,
				Missing:  missing,
				Expected: len(expected),
			})
		}
		metrics.BlocksScanned.WithLabelValues(s.chain).Add(float64(len(expected)))
		metrics.BlocksMissing.WithLabelValues(s.chain).Add(float64(missing))
	}
	if started {
		s.logProgress(lastMillions, report)
	}

	return report, nil
}

func (s *Scanner) logProgress(millions uint64, report *domain.GapReport) {
	s.log.Info("scan progress",
		"millions", millions,
		"expected", report.Expected,
		"missing", report.MissingCount(),
		"complete_pct", report.Completeness(),
	)
}
