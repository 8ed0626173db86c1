package bulk

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/core/domain"
	"github.com/evmstore/blockcache/internal/metrics"
)

// Result counts the outcome of one repair run.
type Result struct {
	Downloaded int
	Failed     int
}

// Fetcher downloads missing heights through a bounded worker pool and
// writes them into the local store.
type Fetcher struct {
	objects ObjectStore
	store   *archive.Store
	workers int
	chain   string
	log     *slog.Logger
}

// NewFetcher creates a fetcher with the given pool size.
func NewFetcher(objects ObjectStore, store *archive.Store, workers int, chain string) *Fetcher {
	if workers <= 0 {
		workers = 32
	}
	return &Fetcher{
		objects: objects,
		store:   store,
		workers: workers,
		chain:   chain,
		log:     slog.Default().With("component", "bulk", "chain", chain),
	}
}

type taskResult struct {
	height uint64
	err    error
}

// Fill downloads every height in the list. Tasks are independent: a
// failed download is counted, not retried, and never aborts siblings.
// Counters are updated only here as completions arrive, in whatever
// order the workers finish.
func (f *Fetcher) Fill(ctx context.Context, heights []uint64) Result {
	if len(heights) == 0 {
		return Result{}
	}

	tasks := make(chan uint64)
	results := make(chan taskResult)

	var g errgroup.Group
	for i := 0; i < f.workers; i++ {
		g.Go(func() error {
			for h := range tasks {
				results <- taskResult{height: h, err: f.fetchOne(ctx, h)}
			}
			return nil
		})
	}

	go func() {
		defer close(tasks)
		for _, h := range heights {
			select {
			case tasks <- h:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		g.Wait()
		close(results)
	}()

	var res Result
	for r := range results {
		if r.err != nil {
			res.Failed++
			metrics.FetchErrors.WithLabelValues(f.chain, "bulk").Inc()
			f.log.Debug("download failed", "height", r.height, "error", r.err)
		} else {
			res.Downloaded++
			metrics.BlocksStored.WithLabelValues(f.chain, "bulk").Inc()
		}
		if done := res.Downloaded + res.Failed; done%1000 == 0 {
			f.log.Info("download progress",
				"done", done,
				"total", len(heights),
				"ok", res.Downloaded,
				"failed", res.Failed,
			)
		}
	}

	return res
}

func (f *Fetcher) fetchOne(ctx context.Context, height uint64) error {
	data, err := f.objects.GetObject(ctx, domain.RelPath(height))
	if err != nil {
		return err
	}
	return f.store.Write(height, data)
}
