package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create warehouse tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		wh, err := openWarehouse(ctx, cfg)
		if err != nil {
			return err
		}
		defer wh.Close()

		if err := wh.Migrate(ctx); err != nil {
			return err
		}

		zap.L().Info("warehouse migration complete", zap.String("driver", cfg.Warehouse.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
