package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/fetch/live"
)

var (
	fetchStart     uint64
	fetchEnd       uint64
	fetchRPC       string
	fetchBatchSize int
	fetchDelay     time.Duration
	fetchDryRun    bool
	fetchScanGaps  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch blocks from a live node over batched JSON-RPC",
	Long: `fetch pulls block and receipt data from an RPC endpoint, transcodes
each height into the archive record format and stores it. Without an
explicit range it resumes one past the highest local height and runs to
the chain tip.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			fail("invalid configuration", err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		if fetchRPC != "" {
			cfg.RPC.Endpoint = fetchRPC
		}
		if fetchBatchSize > 0 {
			cfg.RPC.BatchSize = fetchBatchSize
		}
		if fetchDelay > 0 {
			cfg.RPC.BatchDelay = fetchDelay
		}

		store := archive.NewStore(cfg.BlocksDir)
		client := live.NewClient(cfg.RPC.Endpoint, cfg.RPC.Timeout, cfg.RPC.MaxAttempts)
		fetcher := live.NewFetcher(client, store, cfg.Chain, cfg.RPC.BatchSize, cfg.RPC.BatchDelay)

		res, err := fetcher.Run(ctx, live.Options{
			Start:    fetchStart,
			End:      fetchEnd,
			ScanGaps: fetchScanGaps,
			DryRun:   fetchDryRun,
		})
		if err != nil {
			fail("fetch failed", err)
		}
		slog.Info("fetch done",
			"start", res.Start,
			"end", res.End,
			"written", res.Written,
			"errors", res.Errors,
		)
		if res.Errors > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	fetchCmd.Flags().Uint64Var(&fetchStart, "start", 0, "first height to fetch (default: one past highest local height)")
	fetchCmd.Flags().Uint64Var(&fetchEnd, "end", 0, "last height to fetch (default: chain tip)")
	fetchCmd.Flags().StringVar(&fetchRPC, "rpc", "", "RPC endpoint (default: chain profile endpoint)")
	fetchCmd.Flags().IntVar(&fetchBatchSize, "batch-size", 0, "heights per JSON-RPC batch")
	fetchCmd.Flags().DurationVar(&fetchDelay, "delay", 0, "baseline delay between batches")
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "plan the range, fetch nothing")
	fetchCmd.Flags().BoolVar(&fetchScanGaps, "scan-gaps", false, "check every height in range and fetch only missing ones")
}
