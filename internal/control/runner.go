// Package control drives a synchronization run: determine the target
// range, classify missing heights, route them to the bulk or live source,
// and report completeness.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/core/config"
	"github.com/evmstore/blockcache/internal/core/domain"
	"github.com/evmstore/blockcache/internal/fetch/bulk"
	"github.com/evmstore/blockcache/internal/fetch/live"
)

// verboseMissingCap bounds how many missing heights are listed
// explicitly; the remainder is summarized by count.
const verboseMissingCap = 500

// worstShardCap bounds the per-shard diagnostic listing.
const worstShardCap = 20

// GapScanner finds missing heights in a range of the local archive.
type GapScanner interface {
	Scan(ctx context.Context, start, end uint64) (*domain.GapReport, error)
}

// BulkFiller downloads a set of heights from the bulk object store.
type BulkFiller interface {
	Fill(ctx context.Context, heights []uint64) bulk.Result
}

// LiveFiller fills the tip of the archive from a live node.
type LiveFiller interface {
	Run(ctx context.Context, opts live.Options) (live.Result, error)
}

// Options controls one orchestrated run.
type Options struct {
	Start   uint64 // 0 = the profile's first bulk height
	End     uint64 // 0 = highest local height (check) / chain tip (sync)
	Fix     bool   // repair historical gaps from the bulk store
	Verbose bool   // list missing heights explicitly
	DryRun  bool   // plan only
}

// Report is the outcome of a run. The exit status depends only on
// whether heights remain missing, not on how many task-level failures
// were absorbed along the way.
type Report struct {
	RunID            string
	Scan             *domain.GapReport
	Bulk             bulk.Result
	Live             live.Result
	SkippedBelowBulk int
	LiveRan          bool
}

// Remaining returns how many scanned heights are still missing after the
// run, plus any live-fetch errors.
func (r *Report) Remaining() int {
	remaining := 0
	if r.Scan != nil {
		remaining = r.Scan.MissingCount() - r.Bulk.Downloaded
		if remaining < 0 {
			remaining = 0
		}
	}
	if r.LiveRan {
		remaining += r.Live.Errors
	}
	return remaining
}

// ExitCode maps the report to a process exit status.
func (r *Report) ExitCode() int {
	if r.Remaining() > 0 {
		return 1
	}
	return 0
}

// Runner composes the scanner and both fetchers for one chain.
type Runner struct {
	store   *archive.Store
	scanner GapScanner
	bulk    BulkFiller
	live    LiveFiller
	profile config.Profile
	log     *slog.Logger
}

// NewRunner wires a runner. bulk and live may be nil when the
// corresponding source is not configured for the command being run.
func NewRunner(
	store *archive.Store,
	scanner GapScanner,
	bulkF BulkFiller,
	liveF LiveFiller,
	profile config.Profile,
	chain string,
) *Runner {
	return &Runner{
		store:   store,
		scanner: scanner,
		bulk:    bulkF,
		live:    liveF,
		profile: profile,
		log:     slog.Default().With("component", "control", "chain", chain),
	}
}

// Check scans [start, end] for gaps and, with Fix, repairs them from the
// bulk store.
func (r *Runner) Check(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := r.log.With("run_id", report.RunID)

	start := opts.Start
	if start == 0 {
		start = r.profile.BulkStart
	}
	end := opts.End
	if end == 0 {
		log.Info("detecting latest local block")
		end = r.store.LatestHeight()
	}
	log.Info("checking range", "start", start, "end", end)

	scan, err := r.scanner.Scan(ctx, start, end)
	if err != nil {
		return report, fmt.Errorf("scan [%d, %d]: %w", start, end, err)
	}
	report.Scan = scan
	r.summarize(log, scan, opts.Verbose)

	if !opts.Fix || scan.Complete() || opts.DryRun {
		return report, nil
	}
	if r.bulk == nil {
		return report, fmt.Errorf("bulk source not configured")
	}

	// Heights below the bucket's first height never reach the bulk store
	// and can only be filled from a live node or snapshot.
	fixable := make([]uint64, 0, len(scan.Missing))
	for _, h := range scan.Missing {
		if h >= r.profile.BulkStart {
			fixable = append(fixable, h)
		}
	}
	report.SkippedBelowBulk = len(scan.Missing) - len(fixable)
	if report.SkippedBelowBulk > 0 {
		log.Warn("missing heights below bulk range skipped",
			"count", report.SkippedBelowBulk,
			"bulk_start", r.profile.BulkStart,
		)
	}
	if len(fixable) == 0 {
		return report, nil
	}

	log.Info("downloading missing blocks from bulk store", "count", len(fixable))
	report.Bulk = r.bulk.Fill(ctx, fixable)
	log.Info("bulk repair done",
		"downloaded", report.Bulk.Downloaded,
		"failed", report.Bulk.Failed,
	)
	return report, nil
}

// Sync runs a full pass: heal historical gaps from the bulk store, then
// fill the tip from the live node.
func (r *Runner) Sync(ctx context.Context, opts Options) (*Report, error) {
	report, err := r.Check(ctx, Options{
		Start:   opts.Start,
		Fix:     opts.Fix,
		Verbose: opts.Verbose,
		DryRun:  opts.DryRun,
	})
	if err != nil {
		return report, err
	}
	if r.live == nil {
		return report, nil
	}

	liveRes, err := r.live.Run(ctx, live.Options{
		End:    opts.End,
		DryRun: opts.DryRun,
	})
	report.Live = liveRes
	report.LiveRan = true
	if err != nil {
		return report, fmt.Errorf("live fill: %w", err)
	}

	r.log.With("run_id", report.RunID).Info("sync done",
		"scanned_missing", report.Scan.MissingCount(),
		"bulk_downloaded", report.Bulk.Downloaded,
		"live_written", report.Live.Written,
		"remaining", report.Remaining(),
	)
	return report, nil
}

func (r *Runner) summarize(log *slog.Logger, scan *domain.GapReport, verbose bool) {
	log.Info("scan summary",
		"expected", scan.Expected,
		"present", scan.Expected-uint64(scan.MissingCount()),
		"missing", scan.MissingCount(),
		"complete_pct", scan.Completeness(),
	)
	if scan.Complete() {
		return
	}

	if verbose {
		shown := scan.Missing
		if len(shown) > verboseMissingCap {
			shown = shown[:verboseMissingCap]
		}
		for _, h := range shown {
			log.Info("missing", "height", h)
		}
		if rest := len(scan.Missing) - len(shown); rest > 0 {
			log.Info("more missing heights omitted", "count", rest)
		}
		return
	}

	for _, sg := range scan.WorstShards(worstShardCap) {
		log.Info("incomplete shard",
			"shard", sg.Shard.String(),
			"missing", sg.Missing,
			"expected", sg.Expected,
		)
	}
	if rest := len(scan.Shards) - worstShardCap; rest > 0 {
		log.Info("more incomplete shards omitted", "count", rest)
	}
}
