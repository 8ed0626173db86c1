package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/control"
	"github.com/evmstore/blockcache/internal/fetch/bulk"
	"github.com/evmstore/blockcache/internal/fetch/live"
)

var (
	syncStart     uint64
	syncFix       bool
	syncVerbose   bool
	syncDryRun    bool
	syncWorkers   int
	syncBatchSize int
	syncDelay     time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scan, repair history, then follow the chain tip",
	Long: `sync runs a full pass: scan the archive for gaps, repair historical
gaps from the bulk store (with --fix), then fill from the highest local
height to the chain tip over live JSON-RPC.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			fail("invalid configuration", err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		if syncBatchSize > 0 {
			cfg.RPC.BatchSize = syncBatchSize
		}
		if syncDelay > 0 {
			cfg.RPC.BatchDelay = syncDelay
		}

		profile := cfg.ProfileFor()
		store := archive.NewStore(cfg.BlocksDir)
		scanner := archive.NewScanner(store, cfg.Chain)

		var filler control.BulkFiller
		if syncFix && !syncDryRun {
			workers := syncWorkers
			if workers == 0 {
				workers = cfg.Bulk.Workers
			}
			objects, err := bulk.NewS3Store(ctx, profile.Bucket, cfg.Bulk.Region)
			if err != nil {
				fail("bulk store init failed", err)
			}
			filler = bulk.NewFetcher(objects, store, workers, cfg.Chain)
		}

		client := live.NewClient(cfg.RPC.Endpoint, cfg.RPC.Timeout, cfg.RPC.MaxAttempts)
		liveF := live.NewFetcher(client, store, cfg.Chain, cfg.RPC.BatchSize, cfg.RPC.BatchDelay)

		runner := control.NewRunner(store, scanner, filler, liveF, profile, cfg.Chain)
		report, err := runner.Sync(ctx, control.Options{
			Start:   syncStart,
			Fix:     syncFix,
			Verbose: syncVerbose,
			DryRun:  syncDryRun,
		})
		if err != nil {
			fail("sync failed", err)
		}
		os.Exit(report.ExitCode())
	},
}

func init() {
	syncCmd.Flags().Uint64Var(&syncStart, "start", 0, "first height to scan (default: first bulk height)")
	syncCmd.Flags().BoolVar(&syncFix, "fix", false, "repair historical gaps from the bulk store")
	syncCmd.Flags().BoolVar(&syncVerbose, "verbose", false, "list missing heights explicitly")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "plan only, write nothing")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "concurrent bulk downloads (default: config value)")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "heights per JSON-RPC batch")
	syncCmd.Flags().DurationVar(&syncDelay, "delay", 0, "baseline delay between batches")
}
