package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/seed"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo restaurant, sectors and tables into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Store == "memory" {
				return fmt.Errorf("seeding the memory store standalone is pointless; it starts empty on every run")
			}
			log := newLogger(cfg.LogLevel)

			ctx := context.Background()
			store, closeStore, err := openStore(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()

			return seed.Load(ctx, store, log)
		},
	}
}
