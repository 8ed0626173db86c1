package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/control"
	"github.com/evmstore/blockcache/internal/fetch/bulk"
)

var (
	checkStart   uint64
	checkEnd     uint64
	checkFix     bool
	checkVerbose bool
	checkDryRun  bool
	checkWorkers int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scan the local archive for missing blocks",
	Long: `check walks the local archive between two heights and reports every
height without a stored record. With --fix, missing heights at or above
the bulk range are downloaded from the S3 bucket.

Exits 0 when the range is complete, 1 otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			fail("invalid configuration", err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		profile := cfg.ProfileFor()
		store := archive.NewStore(cfg.BlocksDir)
		scanner := archive.NewScanner(store, cfg.Chain)

		var filler control.BulkFiller
		if checkFix && !checkDryRun {
			workers := checkWorkers
			if workers == 0 {
				workers = cfg.Bulk.Workers
			}
			objects, err := bulk.NewS3Store(ctx, profile.Bucket, cfg.Bulk.Region)
			if err != nil {
				fail("bulk store init failed", err)
			}
			filler = bulk.NewFetcher(objects, store, workers, cfg.Chain)
		}

		runner := control.NewRunner(store, scanner, filler, nil, profile, cfg.Chain)
		report, err := runner.Check(ctx, control.Options{
			Start:   checkStart,
			End:     checkEnd,
			Fix:     checkFix,
			Verbose: checkVerbose,
			DryRun:  checkDryRun,
		})
		if err != nil {
			fail("check failed", err)
		}
		if n := report.Remaining(); n > 0 {
			slog.Warn("range incomplete", "missing", n)
		}
		os.Exit(report.ExitCode())
	},
}

func init() {
	checkCmd.Flags().Uint64Var(&checkStart, "start", 0, "first height to check (default: first bulk height)")
	checkCmd.Flags().Uint64Var(&checkEnd, "end", 0, "last height to check (default: highest local height)")
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "download missing blocks from the bulk store")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "list missing heights explicitly")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "report only, download nothing")
	checkCmd.Flags().IntVar(&checkWorkers, "workers", 0, "concurrent downloads (default: config value)")
}
