// Package seed populates the warehouse from the data team's source files:
// a YAML file of jurisdiction regulations and an XLSX workbook of incentive
// programs and their jurisdiction links.
package seed

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aquareuse/directory-api/internal/db"
	"github.com/aquareuse/directory-api/internal/jurisdiction"
)

// regulationEntry is one regulation row in the YAML source. The most
// specific of city/county/state determines the jurisdiction key.
type regulationEntry struct {
	State  string `yaml:"state"`
	County string `yaml:"county"`
	City   string `yaml:"city"`

	LegalStatus           *string  `yaml:"legal_status"`
	PermitRequired        *bool    `yaml:"permit_required"`
	PermitThresholdGPD    *float64 `yaml:"permit_threshold_gpd"`
	PermitFee             *float64 `yaml:"permit_fee"`
	GreywaterAllowed      *bool    `yaml:"greywater_allowed"`
	IndoorReuseAllowed    *bool    `yaml:"indoor_reuse_allowed"`
	OutdoorReuseAllowed   *bool    `yaml:"outdoor_reuse_allowed"`
	RegulationSummary     *string  `yaml:"regulation_summary"`
	PrePlumbingMandate    *bool    `yaml:"pre_plumbing_mandate"`
	PrePlumbingThreshold  *float64 `yaml:"pre_plumbing_threshold_sqft"`
	PrePlumbingBuildTypes *string  `yaml:"pre_plumbing_building_types"`
	PrePlumbingCodeRef    *string  `yaml:"pre_plumbing_code_ref"`
	DocumentationURL      *string  `yaml:"documentation_url"`
}

func (e regulationEntry) key() (string, error) {
	if e.State == "" {
		return "", eris.New("seed: regulation entry missing state")
	}
	keys := jurisdiction.BuildKeys(e.State, e.County, e.City)
	switch {
	case keys.CityKey != "":
		return keys.CityKey, nil
	case keys.CountyKey != "":
		return keys.CountyKey, nil
	}
	return keys.StateKey, nil
}

type regulationsFile struct {
	Regulations []regulationEntry `yaml:"regulations"`
}

var regulationColumns = []string{
	"jurisdiction_key", "legal_status", "permit_required", "permit_threshold_gpd", "permit_fee",
	"greywater_allowed", "indoor_reuse_allowed", "outdoor_reuse_allowed", "regulation_summary",
	"pre_plumbing_mandate", "pre_plumbing_threshold_sqft", "pre_plumbing_building_types",
	"pre_plumbing_code_ref", "documentation_url",
}

// parseRegulations reads and validates the YAML source.
func parseRegulations(path string) ([]regulationEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}

	var f regulationsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "seed: parse %s", path)
	}
	if len(f.Regulations) == 0 {
		return nil, eris.Errorf("seed: %s contains no regulations", path)
	}
	return f.Regulations, nil
}

// Regulations loads the YAML regulation source into the warehouse,
// upserting on jurisdiction key so reseeding is idempotent.
func Regulations(ctx context.Context, pool db.Pool, path string) (int64, error) {
	entries, err := parseRegulations(path)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		key, err := e.key()
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			key, e.LegalStatus, e.PermitRequired, e.PermitThresholdGPD, e.PermitFee,
			e.GreywaterAllowed, e.IndoorReuseAllowed, e.OutdoorReuseAllowed, e.RegulationSummary,
			e.PrePlumbingMandate, e.PrePlumbingThreshold, e.PrePlumbingBuildTypes,
			e.PrePlumbingCodeRef, e.DocumentationURL,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "jurisdiction_regulations",
		Columns:      regulationColumns,
		ConflictKeys: []string{"jurisdiction_key"},
	}, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("seeded regulations", zap.String("path", path), zap.Int64("rows", n))
	return n, nil
}
