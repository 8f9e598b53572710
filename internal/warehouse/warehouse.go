// Package warehouse provides read access to the regulatory data warehouse:
// jurisdiction-keyed regulations, incentive programs, and the
// program-jurisdiction link table.
package warehouse

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aquareuse/directory-api/internal/model"
)

// Warehouse defines the lookups the compliance resolver depends on.
// Implementations must be safe for concurrent use; the resolver issues
// both lookups in parallel per request.
type Warehouse interface {
	// RegulationsByKeys returns at most one regulation row per provided
	// jurisdiction key. Keys with no data are simply absent from the map.
	RegulationsByKeys(ctx context.Context, keys []string) (map[string]model.Regulation, error)

	// CandidatePrograms returns active incentive programs linked to any of
	// the provided jurisdiction keys, filtered by resource type and
	// applicant eligibility, ordered by program name. A program linked to
	// several requested jurisdictions appears once per link.
	CandidatePrograms(ctx context.Context, keys []string, rt model.ResourceType) ([]model.Candidate, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Driver names for config selection.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// New constructs a Warehouse for the configured driver.
func New(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Warehouse, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, dsn, poolCfg)
	case DriverSQLite:
		return NewSQLite(dsn)
	}
	return nil, eris.Errorf("warehouse: unknown driver %q", driver)
}
