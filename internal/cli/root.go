package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/evmstore/blockcache/internal/core/config"
)

var (
	cfgPath   string
	blocksDir string
	chain     string
	isDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "blockcache",
	Short: "Block cache synchronization service",
	Long: `blockcache keeps a local content-addressed archive of EVM block
records complete: it scans for gaps, repairs history from the bulk S3
bucket and fills the tip from a live node over batched JSON-RPC.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&blocksDir, "blocks-dir", "", "local blocks directory")
	rootCmd.PersistentFlags().StringVar(&chain, "chain", "", "chain profile: testnet or mainnet")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(checkCmd, fetchCmd, syncCmd, statusCmd)
}

// setup loads .env and the config file, applies flag overrides and
// initializes logging. Used by every subcommand.
func setup() (*config.AppConfig, error) {
	_ = godotenv.Load()

	var cfg *config.AppConfig
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			initLogger(slog.LevelInfo)
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if chain != "" {
		cfg.Chain = chain
		cfg.RPC.Endpoint = "" // re-derive from the chosen profile
	}
	if blocksDir != "" {
		cfg.BlocksDir = blocksDir
	}
	if cfg.BlocksDir == "" {
		cfg.BlocksDir = os.Getenv("BLOCKS_DIR")
	}
	cfg.ApplyDefaults()

	if _, ok := config.Profiles[cfg.Chain]; !ok {
		initLogger(slog.LevelInfo)
		return nil, fmt.Errorf("unknown chain %q", cfg.Chain)
	}
	if cfg.BlocksDir == "" {
		initLogger(slog.LevelInfo)
		return nil, fmt.Errorf("blocks directory not set (--blocks-dir, config blocks_dir or BLOCKS_DIR)")
	}

	level := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	initLogger(level)

	return cfg, nil
}

func initLogger(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
