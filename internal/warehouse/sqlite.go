package warehouse

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aquareuse/directory-api/internal/model"
)

// SQLite implements Warehouse using modernc.org/sqlite. Intended for local
// development and demos; production runs against Postgres.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "warehouse: sqlite exec %s", pragma)
		}
	}
	return &SQLite{db: sdb}, nil
}

// DB returns the underlying handle for use by seed helpers and tests.
func (w *SQLite) DB() *sql.DB {
	return w.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jurisdiction_regulations (
	jurisdiction_key            TEXT PRIMARY KEY,
	legal_status                TEXT,
	permit_required             BOOLEAN,
	permit_threshold_gpd        REAL,
	permit_fee                  REAL,
	greywater_allowed           BOOLEAN,
	indoor_reuse_allowed        BOOLEAN,
	outdoor_reuse_allowed       BOOLEAN,
	regulation_summary          TEXT,
	pre_plumbing_mandate        BOOLEAN,
	pre_plumbing_threshold_sqft REAL,
	pre_plumbing_building_types TEXT,
	pre_plumbing_code_ref       TEXT,
	documentation_url           TEXT,
	updated_at                  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS incentive_programs (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	program_type          TEXT,
	program_subtype       TEXT,
	resource_type         TEXT,
	incentive_amount_min  REAL,
	incentive_amount_max  REAL,
	residential_eligible  BOOLEAN NOT NULL DEFAULT 0,
	commercial_eligible   BOOLEAN NOT NULL DEFAULT 0,
	municipal_eligible    BOOLEAN NOT NULL DEFAULT 0,
	agricultural_eligible BOOLEAN NOT NULL DEFAULT 0,
	applicant_type        TEXT,
	application_url       TEXT,
	contact_info          TEXT,
	required_docs         TEXT,
	deadline              TEXT,
	status                TEXT NOT NULL DEFAULT 'active',
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS program_jurisdictions (
	program_id       TEXT NOT NULL REFERENCES incentive_programs(id) ON DELETE CASCADE,
	jurisdiction_key TEXT NOT NULL,
	coverage_type    TEXT NOT NULL DEFAULT 'jurisdiction',
	PRIMARY KEY (program_id, jurisdiction_key)
);

CREATE INDEX IF NOT EXISTS idx_program_jurisdictions_key ON program_jurisdictions(jurisdiction_key);
CREATE INDEX IF NOT EXISTS idx_incentive_programs_status ON incentive_programs(status);
`

func (w *SQLite) Migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "warehouse: sqlite migrate")
}

func (w *SQLite) Close() error {
	return w.db.Close()
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (w *SQLite) RegulationsByKeys(ctx context.Context, keys []string) (map[string]model.Regulation, error) {
	if len(keys) == 0 {
		return map[string]model.Regulation{}, nil
	}

	query := `SELECT jurisdiction_key, legal_status, permit_required, permit_threshold_gpd, permit_fee,
	greywater_allowed, indoor_reuse_allowed, outdoor_reuse_allowed, regulation_summary,
	pre_plumbing_mandate, pre_plumbing_threshold_sqft, pre_plumbing_building_types,
	pre_plumbing_code_ref, documentation_url
FROM jurisdiction_regulations
WHERE jurisdiction_key IN (` + placeholders(len(keys)) + `)`

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: sqlite query regulations")
	}
	defer rows.Close()

	out := make(map[string]model.Regulation, len(keys))
	for rows.Next() {
		var r model.Regulation
		if err := rows.Scan(
			&r.JurisdictionKey, &r.LegalStatus, &r.PermitRequired, &r.PermitThresholdGPD, &r.PermitFee,
			&r.GreywaterAllowed, &r.IndoorReuseAllowed, &r.OutdoorReuseAllowed, &r.RegulationSummary,
			&r.PrePlumbingMandate, &r.PrePlumbingThreshold, &r.PrePlumbingBuildTypes,
			&r.PrePlumbingCodeRef, &r.DocumentationURL,
		); err != nil {
			return nil, eris.Wrap(err, "warehouse: sqlite scan regulation")
		}
		if _, seen := out[r.JurisdictionKey]; !seen {
			out[r.JurisdictionKey] = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: sqlite iterate regulations")
	}

	return out, nil
}

func (w *SQLite) CandidatePrograms(ctx context.Context, keys []string, rt model.ResourceType) ([]model.Candidate, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := `SELECT p.id, p.name, p.program_type, p.program_subtype, p.resource_type,
	p.incentive_amount_min, p.incentive_amount_max,
	p.residential_eligible, p.commercial_eligible, p.municipal_eligible, p.agricultural_eligible,
	p.application_url, p.contact_info, p.required_docs, p.deadline, p.status,
	pj.jurisdiction_key, pj.coverage_type
FROM incentive_programs p
JOIN program_jurisdictions pj ON pj.program_id = p.id
WHERE LOWER(p.status) = 'active'
  AND pj.jurisdiction_key IN (` + placeholders(len(keys)) + `)
  AND (p.residential_eligible OR p.commercial_eligible OR p.applicant_type IS NULL)
  AND (? = 'all' OR p.resource_type = ? OR p.resource_type IS NULL)
ORDER BY p.name, p.id`

	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, string(rt), string(rt))

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: sqlite query programs")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(
			&c.ID, &c.Name, &c.ProgramType, &c.ProgramSubtype, &c.ResourceType,
			&c.IncentiveAmountMin, &c.IncentiveAmountMax,
			&c.ResidentialEligible, &c.CommercialEligible, &c.MunicipalEligible, &c.AgriculturalEligible,
			&c.ApplicationURL, &c.ContactInfo, &c.RequiredDocs, &c.Deadline, &c.Status,
			&c.LinkedJurisdictionKey, &c.CoverageType,
		); err != nil {
			return nil, eris.Wrap(err, "warehouse: sqlite scan program")
		}
		if c.Name == "" {
			continue
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: sqlite iterate programs")
	}

	return out, nil
}
