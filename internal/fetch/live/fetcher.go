package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/encode"
	"github.com/evmstore/blockcache/internal/metrics"
)

// Options controls one fetch run.
type Options struct {
	Start    uint64 // 0 = one past the highest local height
	End      uint64 // 0 = the node's current tip
	ScanGaps bool   // exhaustive existence checks instead of assuming missing
	DryRun   bool   // report the plan without fetching
}

// Result summarizes one fetch run.
type Result struct {
	Start   uint64
	End     uint64
	Missing int
	Written int
	Errors  int
}

// Fetcher fills heights the bulk archive does not yet have, batch by
// batch against a live node. Batches run strictly sequentially to respect
// the node's rate limits; only the writes inside a batch are independent.
type Fetcher struct {
	client    *Client
	store     *archive.Store
	chain     string
	batchSize int
	pacer     *Pacer
	log       *slog.Logger
}

// NewFetcher creates a fetcher writing through the given store.
func NewFetcher(client *Client, store *archive.Store, chain string, batchSize int, baseDelay time.Duration) *Fetcher {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Fetcher{
		client:    client,
		store:     store,
		chain:     chain,
		batchSize: batchSize,
		pacer:     NewPacer(baseDelay),
		log:       slog.Default().With("component", "live", "chain", chain),
	}
}

// Run executes one fetch pass: determine the range, determine the missing
// heights, then batch-fetch, transcode and store them. Per-height errors
// are counted and skipped. A batch protocol error aborts the run; the
// caller re-invokes, typically with a smaller batch size.
func (f *Fetcher) Run(ctx context.Context, opts Options) (Result, error) {
	start := opts.Start
	if start == 0 {
		latest := f.store.LatestHeight()
		start = latest + 1
		f.log.Info("cache latest", "height", latest, "start", start)
		metrics.LocalTip.WithLabelValues(f.chain).Set(float64(latest))
	}

	end := opts.End
	if end == 0 {
		tip, err := f.client.TipHeight(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("determine chain tip: %w", err)
		}
		end = tip
		f.log.Info("chain tip", "height", tip)
		metrics.ChainTip.WithLabelValues(f.chain).Set(float64(tip))
	}

	res := Result{Start: start, End: end}
	if start > end {
		f.log.Info("nothing to fetch", "start", start, "end", end)
		return res, nil
	}

	missing := f.missingHeights(start, end, opts.ScanGaps)
	res.Missing = len(missing)
	f.log.Info("range determined",
		"start", start,
		"end", end,
		"missing", len(missing),
		"total", end-start+1,
	)

	if opts.DryRun {
		if len(missing) > 0 {
			f.log.Info("dry run",
				"first", missing[0],
				"last", missing[len(missing)-1],
				"count", len(missing),
			)
		}
		return res, nil
	}
	if len(missing) == 0 {
		return res, nil
	}

	t0 := time.Now()
	batches := 0
	for i := 0; i < len(missing); i += f.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i > 0 {
			// Pacing applies strictly between batches.
			if err := f.pacer.Wait(ctx); err != nil {
				return res, err
			}
		}

		batch := missing[i:min(i+f.batchSize, len(missing))]
		written, errs, err := f.fetchBatch(ctx, batch)
		res.Written += written
		res.Errors += errs
		switch {
		case err == nil:
			f.pacer.Success()
			metrics.RPCBatches.WithLabelValues(f.chain, "ok").Inc()
		case errors.Is(err, ErrBatchProtocol):
			metrics.RPCBatches.WithLabelValues(f.chain, "protocol_error").Inc()
			return res, err
		default:
			// Transport failure after retries: count the batch, back off,
			// move on. Re-invocation picks these heights up again.
			res.Errors += len(batch)
			f.pacer.Failure()
			metrics.RPCBatches.WithLabelValues(f.chain, "failed").Inc()
			f.log.Warn("batch failed",
				"first", batch[0],
				"size", len(batch),
				"delay", f.pacer.Delay(),
				"error", err,
			)
		}

		batches++
		if batches%50 == 0 || i+len(batch) >= len(missing) {
			f.logProgress(res, i+len(batch), len(missing), t0)
		}
	}

	return res, nil
}

// missingHeights returns the heights to fetch. Fast mode assumes the
// whole range is missing, which is right for tip-filling; exhaustive mode
// checks each height and is used to heal interior gaps.
func (f *Fetcher) missingHeights(start, end uint64, scanGaps bool) []uint64 {
	missing := make([]uint64, 0, end-start+1)
	for h := start; h <= end; h++ {
		if scanGaps && f.store.Exists(h) {
			continue
		}
		missing = append(missing, h)
	}
	return missing
}

// fetchBatch performs one network round trip for a batch of heights: a
// block query and a receipts query per height, ids 2i and 2i+1 for the
// i-th height. The returned error is nil unless the whole batch failed.
func (f *Fetcher) fetchBatch(ctx context.Context, heights []uint64) (written, errs int, err error) {
	batch := make([]Request, 0, 2*len(heights))
	for i, h := range heights {
		hexHeight := "0x" + strconv.FormatUint(h, 16)
		batch = append(batch,
			NewRequest(2*i, "eth_getBlockByNumber", hexHeight, true),
			NewRequest(2*i+1, "eth_getBlockReceipts", hexHeight),
		)
	}

	byID, err := f.client.CallBatch(ctx, batch)
	if err != nil {
		return 0, 0, err
	}

	for i, h := range heights {
		if err := f.handleHeight(h, byID[2*i], byID[2*i+1]); err != nil {
			f.log.Warn("height failed", "height", h, "error", err)
			metrics.FetchErrors.WithLabelValues(f.chain, "rpc").Inc()
			errs++
			continue
		}
		metrics.BlocksStored.WithLabelValues(f.chain, "rpc").Inc()
		written++
	}
	return written, errs, nil
}

func (f *Fetcher) handleHeight(height uint64, blockResp, receiptsResp Response) error {
	if blockResp.Error != nil {
		return fmt.Errorf("block query: %w", blockResp.Error)
	}
	if len(blockResp.Result) == 0 || string(blockResp.Result) == "null" {
		return fmt.Errorf("no block data")
	}

	var block encode.RPCBlock
	if err := json.Unmarshal(blockResp.Result, &block); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	// A block with no receipts returned has zero receipts; that is not
	// an error.
	var receipts []encode.RPCReceipt
	if receiptsResp.Error == nil && len(receiptsResp.Result) > 0 && string(receiptsResp.Result) != "null" {
		if err := json.Unmarshal(receiptsResp.Result, &receipts); err != nil {
			return fmt.Errorf("decode receipts: %w", err)
		}
	}

	record, err := encode.Transcode(&block, receipts)
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	data, err := record.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return f.store.Write(height, data)
}

func (f *Fetcher) logProgress(res Result, done, total int, t0 time.Time) {
	elapsed := time.Since(t0).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(res.Written) / elapsed
	}
	eta := 0.0
	if rate > 0 {
		eta = float64(total-done) / rate
	}
	f.log.Info("fetch progress",
		"done", done,
		"total", total,
		"written", res.Written,
		"errors", res.Errors,
		"blocks_per_sec", rate,
		"eta_sec", eta,
		"delay", f.pacer.Delay(),
	)
}

func parseHexUint(h string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(h, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex number %q: %w", h, err)
	}
	return v, nil
}
