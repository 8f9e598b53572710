package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquareuse/directory-api/internal/model"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	w, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.Migrate(context.Background()))
	return w
}

func seedProgram(t *testing.T, w *SQLite, id, name, status string, resourceType *string, amountMax *float64, residential bool, applicantType *string) {
	t.Helper()
	_, err := w.db.Exec(
		`INSERT INTO incentive_programs (id, name, resource_type, incentive_amount_max, residential_eligible, applicant_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, resourceType, amountMax, residential, applicantType, status,
	)
	require.NoError(t, err)
}

func linkProgram(t *testing.T, w *SQLite, programID, key, coverage string) {
	t.Helper()
	_, err := w.db.Exec(
		`INSERT INTO program_jurisdictions (program_id, jurisdiction_key, coverage_type) VALUES (?, ?, ?)`,
		programID, key, coverage,
	)
	require.NoError(t, err)
}

func TestSQLite_RegulationsByKeys(t *testing.T) {
	w := newTestSQLite(t)

	_, err := w.db.Exec(
		`INSERT INTO jurisdiction_regulations (jurisdiction_key, legal_status, permit_required, regulation_summary)
		 VALUES ('CA_STATE', 'legal', 0, 'Legal statewide')`,
	)
	require.NoError(t, err)

	got, err := w.RegulationsByKeys(context.Background(), []string{"CA_STATE", "CA_COUNTY_FRESNO"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	reg := got["CA_STATE"]
	assert.Equal(t, "legal", *reg.LegalStatus)
	assert.False(t, *reg.PermitRequired)
	assert.Equal(t, "Legal statewide", *reg.RegulationSummary)
	assert.Nil(t, reg.PermitFee)
}

func TestSQLite_RegulationsByKeys_EmptyKeys(t *testing.T) {
	w := newTestSQLite(t)

	got, err := w.RegulationsByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_CandidatePrograms_Filters(t *testing.T) {
	w := newTestSQLite(t)
	ctx := context.Background()

	grey := "greywater"
	rain := "rainwater"
	muni := "municipal"
	max := 500.0

	seedProgram(t, w, "p1", "City Rebate", "active", &grey, &max, true, nil)
	linkProgram(t, w, "p1", "CA_CITY_GLENDALE", "jurisdiction")

	// Inactive programs are excluded regardless of links.
	seedProgram(t, w, "p2", "Expired Rebate", "inactive", &grey, nil, true, nil)
	linkProgram(t, w, "p2", "CA_CITY_GLENDALE", "jurisdiction")

	// Status matching is case-insensitive.
	seedProgram(t, w, "p3", "Rain Barrel Rebate", "ACTIVE", &rain, nil, true, nil)
	linkProgram(t, w, "p3", "CA_STATE", "state")

	// Municipal-only programs do not qualify for the directory.
	seedProgram(t, w, "p4", "Muni Grant", "active", nil, nil, false, &muni)
	linkProgram(t, w, "p4", "CA_STATE", "state")

	// No applicant-type restriction qualifies even without flags.
	seedProgram(t, w, "p5", "Open Credit", "active", nil, nil, false, nil)
	linkProgram(t, w, "p5", "CA_STATE", "utility")

	keys := []string{"CA_STATE", "CA_CITY_GLENDALE"}

	all, err := w.CandidatePrograms(ctx, keys, model.ResourceAll)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"City Rebate", "Open Credit", "Rain Barrel Rebate"}, names)

	greyOnly, err := w.CandidatePrograms(ctx, keys, model.ResourceGreywater)
	require.NoError(t, err)
	names = names[:0]
	for _, c := range greyOnly {
		names = append(names, c.Name)
	}
	// NULL resource_type matches any filter.
	assert.Equal(t, []string{"City Rebate", "Open Credit"}, names)
}

func TestSQLite_CandidatePrograms_MultipleLinks(t *testing.T) {
	w := newTestSQLite(t)

	seedProgram(t, w, "p1", "Regional Rebate", "active", nil, nil, true, nil)
	linkProgram(t, w, "p1", "CA_COUNTY_LOS_ANGELES", "jurisdiction")
	linkProgram(t, w, "p1", "CA_CITY_GLENDALE", "jurisdiction")

	got, err := w.CandidatePrograms(context.Background(),
		[]string{"CA_STATE", "CA_COUNTY_LOS_ANGELES", "CA_CITY_GLENDALE"}, model.ResourceAll)
	require.NoError(t, err)
	// One candidate per matching link; dedup happens in the resolver.
	assert.Len(t, got, 2)
}

func TestSQLite_CandidatePrograms_EmptyKeys(t *testing.T) {
	w := newTestSQLite(t)

	got, err := w.CandidatePrograms(context.Background(), nil, model.ResourceAll)
	require.NoError(t, err)
	assert.Nil(t, got)
}
