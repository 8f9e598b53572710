package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquareuse/directory-api/internal/seed"
)

var (
	seedRegulationsPath string
	seedProgramsPath    string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load source data files into the warehouse",
}

var seedRegulationsCmd = &cobra.Command{
	Use:   "regulations",
	Short: "Load jurisdiction regulations from the YAML source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		wh, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer wh.Close()

		path := seedRegulationsPath
		if path == "" {
			path = cfg.Seed.RegulationsPath
		}

		n, err := seed.Regulations(ctx, wh.Pool(), path)
		if err != nil {
			return err
		}

		zap.L().Info("regulations seed complete", zap.Int64("rows", n))
		return nil
	},
}

var seedProgramsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Load incentive programs and jurisdiction links from the XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		wh, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer wh.Close()

		path := seedProgramsPath
		if path == "" {
			path = cfg.Seed.ProgramsPath
		}

		n, err := seed.Programs(ctx, wh.Pool(), path)
		if err != nil {
			return err
		}

		zap.L().Info("programs seed complete", zap.Int64("rows", n))
		return nil
	},
}

func init() {
	seedRegulationsCmd.Flags().StringVar(&seedRegulationsPath, "file", "", "path to regulations YAML (default from config)")
	seedProgramsCmd.Flags().StringVar(&seedProgramsPath, "file", "", "path to programs workbook (default from config)")
	seedCmd.AddCommand(seedRegulationsCmd)
	seedCmd.AddCommand(seedProgramsCmd)
	rootCmd.AddCommand(seedCmd)
}
