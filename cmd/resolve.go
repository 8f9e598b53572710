package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aquareuse/directory-api/internal/jurisdiction"
	"github.com/aquareuse/directory-api/internal/model"
	"github.com/aquareuse/directory-api/internal/resolver"
)

var (
	resolveState    string
	resolveCounty   string
	resolveCity     string
	resolveResource string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve compliance for a location and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		rt, err := model.ParseResourceType(resolveResource)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		wh, err := openWarehouse(ctx, cfg)
		if err != nil {
			return err
		}
		defer wh.Close()

		out, err := resolver.New(wh).Resolve(ctx, resolver.Request{
			State:    resolveState,
			County:   resolveCounty,
			City:     resolveCity,
			Resource: rt,
		})
		if err != nil {
			return err
		}

		warnings := []string{}
		if out.RegulationsFailed {
			warnings = append(warnings, "regulation data is temporarily unavailable; state defaults are assumed")
		}
		if out.IncentivesFailed {
			warnings = append(warnings, "incentive program data is temporarily unavailable")
		}

		resp := model.ComplianceResponse{
			Status: "success",
			Location: model.Location{
				State:  strings.ToUpper(resolveState),
				County: jurisdiction.DisplayName(resolveCounty),
				City:   jurisdiction.DisplayName(resolveCity),
			},
			ResourceType: rt,
			Compliance:   out.Compliance,
			PartialData:  len(warnings) > 0,
			DataWarnings: warnings,
			Timestamp:    time.Now().UTC(),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveState, "state", "", "2-letter state code (required)")
	resolveCmd.Flags().StringVar(&resolveCounty, "county", "", "county name")
	resolveCmd.Flags().StringVar(&resolveCity, "city", "", "city name")
	resolveCmd.Flags().StringVar(&resolveResource, "resource", "all", "resource type filter")
	_ = resolveCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(resolveCmd)
}
