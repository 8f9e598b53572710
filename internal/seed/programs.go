package seed

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/aquareuse/directory-api/internal/db"
	"github.com/aquareuse/directory-api/internal/jurisdiction"
)

const (
	programsSheet = "Programs"
	linksSheet    = "Jurisdictions"
)

var programColumns = []string{
	"id", "name", "program_type", "program_subtype", "resource_type",
	"incentive_amount_min", "incentive_amount_max",
	"residential_eligible", "commercial_eligible", "municipal_eligible", "agricultural_eligible",
	"applicant_type", "application_url", "contact_info", "required_docs", "deadline", "status",
}

var linkColumns = []string{"program_id", "jurisdiction_key", "coverage_type"}

// programRow is one parsed row of the Programs sheet.
type programRow struct {
	ID     string
	Name   string
	Values []any
}

// linkRow is one parsed row of the Jurisdictions sheet.
type linkRow struct {
	ProgramID       string
	JurisdictionKey string
	CoverageType    string
}

// Programs loads the incentive workbook into the warehouse: the Programs
// sheet into incentive_programs and the Jurisdictions sheet into
// program_jurisdictions. Programs are written first so link rows satisfy
// the foreign key.
func Programs(ctx context.Context, pool db.Pool, path string) (int64, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "seed: open workbook %s", path)
	}

	programs, err := parsePrograms(f)
	if err != nil {
		return 0, err
	}
	links, err := parseLinks(f, programs)
	if err != nil {
		return 0, err
	}

	programRows := make([][]any, len(programs))
	for i, p := range programs {
		programRows[i] = p.Values
	}
	nPrograms, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "incentive_programs",
		Columns:      programColumns,
		ConflictKeys: []string{"id"},
	}, programRows)
	if err != nil {
		return 0, err
	}

	lnkRows := make([][]any, len(links))
	for i, l := range links {
		lnkRows[i] = []any{l.ProgramID, l.JurisdictionKey, l.CoverageType}
	}
	nLinks, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "program_jurisdictions",
		Columns:      linkColumns,
		ConflictKeys: []string{"program_id", "jurisdiction_key"},
	}, lnkRows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("seeded incentive programs",
		zap.String("path", path),
		zap.Int64("programs", nPrograms),
		zap.Int64("links", nLinks),
	)
	return nPrograms + nLinks, nil
}

// Programs sheet columns, in order. The first row is a header and skipped.
//
//	name, program_type, program_subtype, resource_type, amount_min,
//	amount_max, residential, commercial, municipal, agricultural,
//	applicant_type, application_url, contact_info, required_docs,
//	deadline, status, id (optional)
func parsePrograms(f *xlsx.File) ([]programRow, error) {
	sheet, ok := f.Sheet[programsSheet]
	if !ok {
		return nil, eris.Errorf("seed: workbook has no %q sheet", programsSheet)
	}

	var out []programRow
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := cellStrings(row, 17)
		name := strings.TrimSpace(cells[0])
		if name == "" {
			continue
		}

		id := strings.TrimSpace(cells[16])
		if id == "" {
			id = uuid.New().String()
		}

		amountMin, err := optFloat(cells[4])
		if err != nil {
			return nil, eris.Wrapf(err, "seed: %s row %d: amount_min", programsSheet, i+1)
		}
		amountMax, err := optFloat(cells[5])
		if err != nil {
			return nil, eris.Wrapf(err, "seed: %s row %d: amount_max", programsSheet, i+1)
		}

		status := strings.TrimSpace(cells[15])
		if status == "" {
			status = "active"
		}

		out = append(out, programRow{
			ID:   id,
			Name: name,
			Values: []any{
				id, name, optStr(cells[1]), optStr(cells[2]), optStr(cells[3]),
				amountMin, amountMax,
				parseBool(cells[6]), parseBool(cells[7]), parseBool(cells[8]), parseBool(cells[9]),
				optStr(cells[10]), optStr(cells[11]), optStr(cells[12]), optStr(cells[13]),
				optStr(cells[14]), status,
			},
		})
	}
	if len(out) == 0 {
		return nil, eris.Errorf("seed: %q sheet contains no program rows", programsSheet)
	}
	return out, nil
}

// Jurisdictions sheet columns: program_name, state, county, city, utility,
// coverage_type. The jurisdiction key is built from the most specific of
// city/county, falling back to the state key.
func parseLinks(f *xlsx.File, programs []programRow) ([]linkRow, error) {
	sheet, ok := f.Sheet[linksSheet]
	if !ok {
		return nil, eris.Errorf("seed: workbook has no %q sheet", linksSheet)
	}

	idByName := make(map[string]string, len(programs))
	for _, p := range programs {
		idByName[p.Name] = p.ID
	}

	// Distinct rows can resolve to the same key, e.g. a state-coverage row
	// and a utility row for the same program and state. The upsert rejects
	// a batch that hits one target row twice, so collapse them here; the
	// first-seen row wins.
	seen := make(map[string]bool)
	var out []linkRow
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := cellStrings(row, 6)
		name := strings.TrimSpace(cells[0])
		if name == "" {
			continue
		}
		programID, ok := idByName[name]
		if !ok {
			return nil, eris.Errorf("seed: %s row %d: unknown program %q", linksSheet, i+1, name)
		}

		state := strings.TrimSpace(cells[1])
		if state == "" {
			return nil, eris.Errorf("seed: %s row %d: missing state", linksSheet, i+1)
		}

		key, utilityLink := linkKey(state, cells[2], cells[3], cells[4])
		coverage := jurisdiction.ParseCoverageType(cells[5])
		if utilityLink {
			coverage = jurisdiction.CoverageUtility
		}

		if seen[programID+"\x00"+key] {
			continue
		}
		seen[programID+"\x00"+key] = true

		out = append(out, linkRow{ProgramID: programID, JurisdictionKey: key, CoverageType: coverage.String()})
	}
	return out, nil
}

// linkKey resolves the jurisdiction key for a link row. Utility rows attach
// at the state key, since the compliance lookup matches on state/county/city
// keys only; the utility itself is carried through the coverage type.
func linkKey(state, county, city, utility string) (string, bool) {
	keys := jurisdiction.BuildKeys(state, county, city)
	if jurisdiction.Normalize(utility) != "" {
		return keys.StateKey, true
	}
	switch {
	case keys.CityKey != "":
		return keys.CityKey, false
	case keys.CountyKey != "":
		return keys.CountyKey, false
	}
	return keys.StateKey, false
}

func cellStrings(row *xlsx.Row, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(row.Cells); i++ {
		out[i] = row.Cells[i].String()
	}
	return out
}

func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}
