package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evmstore/blockcache/internal/archive"
	"github.com/evmstore/blockcache/internal/fetch/live"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local archive and chain tip heights",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := setup()
		if err != nil {
			fail("invalid configuration", err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		store := archive.NewStore(cfg.BlocksDir)
		local := store.LatestHeight()

		fmt.Printf("chain:       %s\n", cfg.Chain)
		fmt.Printf("blocks dir:  %s\n", cfg.BlocksDir)
		fmt.Printf("local tip:   %d\n", local)

		client := live.NewClient(cfg.RPC.Endpoint, cfg.RPC.Timeout, 1)
		tip, err := client.TipHeight(ctx)
		if err != nil {
			fmt.Printf("chain tip:   unavailable (%v)\n", err)
			return
		}
		fmt.Printf("chain tip:   %d\n", tip)
		if tip > local {
			fmt.Printf("behind by:   %d\n", tip-local)
		}
	},
}
