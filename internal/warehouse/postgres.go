package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aquareuse/directory-api/internal/db"
	"github.com/aquareuse/directory-api/internal/model"
)

// Postgres implements Warehouse using pgxpool.
type Postgres struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a Postgres warehouse with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}
	return &Postgres{pool: pool}, nil
}

// Pool returns the underlying database pool for use by the seed loaders,
// which need direct bulk-write access.
func (w *Postgres) Pool() db.Pool {
	return w.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jurisdiction_regulations (
	jurisdiction_key            TEXT PRIMARY KEY,
	legal_status                TEXT,
	permit_required             BOOLEAN,
	permit_threshold_gpd        DOUBLE PRECISION,
	permit_fee                  DOUBLE PRECISION,
	greywater_allowed           BOOLEAN,
	indoor_reuse_allowed        BOOLEAN,
	outdoor_reuse_allowed       BOOLEAN,
	regulation_summary          TEXT,
	pre_plumbing_mandate        BOOLEAN,
	pre_plumbing_threshold_sqft DOUBLE PRECISION,
	pre_plumbing_building_types TEXT,
	pre_plumbing_code_ref       TEXT,
	documentation_url           TEXT,
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS incentive_programs (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	program_type          TEXT,
	program_subtype       TEXT,
	resource_type         TEXT,
	incentive_amount_min  DOUBLE PRECISION,
	incentive_amount_max  DOUBLE PRECISION,
	residential_eligible  BOOLEAN NOT NULL DEFAULT FALSE,
	commercial_eligible   BOOLEAN NOT NULL DEFAULT FALSE,
	municipal_eligible    BOOLEAN NOT NULL DEFAULT FALSE,
	agricultural_eligible BOOLEAN NOT NULL DEFAULT FALSE,
	applicant_type        TEXT,
	application_url       TEXT,
	contact_info          TEXT,
	required_docs         TEXT,
	deadline              TEXT,
	status                TEXT NOT NULL DEFAULT 'active',
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS program_jurisdictions (
	program_id       TEXT NOT NULL REFERENCES incentive_programs(id) ON DELETE CASCADE,
	jurisdiction_key TEXT NOT NULL,
	coverage_type    TEXT NOT NULL DEFAULT 'jurisdiction',
	PRIMARY KEY (program_id, jurisdiction_key)
);

CREATE INDEX IF NOT EXISTS idx_program_jurisdictions_key ON program_jurisdictions(jurisdiction_key);
CREATE INDEX IF NOT EXISTS idx_incentive_programs_status ON incentive_programs(status);
CREATE INDEX IF NOT EXISTS idx_incentive_programs_resource ON incentive_programs(resource_type);
`

func (w *Postgres) Migrate(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "warehouse: migrate")
	}
	return nil
}

func (w *Postgres) Close() error {
	w.pool.Close()
	return nil
}

const regulationsQuery = `SELECT jurisdiction_key, legal_status, permit_required, permit_threshold_gpd, permit_fee,
	greywater_allowed, indoor_reuse_allowed, outdoor_reuse_allowed, regulation_summary,
	pre_plumbing_mandate, pre_plumbing_threshold_sqft, pre_plumbing_building_types,
	pre_plumbing_code_ref, documentation_url
FROM jurisdiction_regulations
WHERE jurisdiction_key = ANY($1)`

func (w *Postgres) RegulationsByKeys(ctx context.Context, keys []string) (map[string]model.Regulation, error) {
	if len(keys) == 0 {
		return map[string]model.Regulation{}, nil
	}

	rows, err := w.pool.Query(ctx, regulationsQuery, keys)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query regulations")
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
			return nil, eris.Wrap(err, "warehouse: scan regulation")
		}
		// First row per key wins; duplicates are a data-quality issue the
		// resolver does not reconcile further.
		if _, seen := out[r.JurisdictionKey]; !seen {
			out[r.JurisdictionKey] = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate regulations")
	}

	return out, nil
}

const candidatesQuery = `SELECT p.id, p.name, p.program_type, p.program_subtype, p.resource_type,
	p.incentive_amount_min, p.incentive_amount_max,
	p.residential_eligible, p.commercial_eligible, p.municipal_eligible, p.agricultural_eligible,
	p.application_url, p.contact_info, p.required_docs, p.deadline, p.status,
	pj.jurisdiction_key, pj.coverage_type
FROM incentive_programs p
JOIN program_jurisdictions pj ON pj.program_id = p.id
WHERE LOWER(p.status) = 'active'
  AND pj.jurisdiction_key = ANY($1)
  AND (p.residential_eligible OR p.commercial_eligible OR p.applicant_type IS NULL)
  AND ($2 = 'all' OR p.resource_type = $2 OR p.resource_type IS NULL)
ORDER BY p.name, p.id`

func (w *Postgres) CandidatePrograms(ctx context.Context, keys []string, rt model.ResourceType) ([]model.Candidate, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := w.pool.Query(ctx, candidatesQuery, keys, string(rt))
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query programs")
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
			return nil, eris.Wrap(err, "warehouse: scan program")
		}
		// A link row without a program name cannot be assigned or
		// deduplicated; skip it.
		if c.Name == "" {
			continue
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate programs")
	}

	return out, nil
}
