package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regulationsYAML = `regulations:
  - state: CA
    legal_status: legal
    permit_required: false
    greywater_allowed: true
    regulation_summary: "Legal statewide under the plumbing code."
    documentation_url: "https://example.gov/greywater"
  - state: CA
    county: Los Angeles
    permit_required: true
    permit_fee: 150
  - state: CA
    county: Los Angeles
    city: Glendale
    regulation_summary: "City requires plan review for indoor systems."
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseRegulations(t *testing.T) {
	path := writeTemp(t, "regulations.yaml", regulationsYAML)

	entries, err := parseRegulations(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	key, err := entries[0].key()
	require.NoError(t, err)
	assert.Equal(t, "CA_STATE", key)

	key, err = entries[1].key()
	require.NoError(t, err)
	assert.Equal(t, "CA_COUNTY_LOS_ANGELES", key)

	key, err = entries[2].key()
	require.NoError(t, err)
	assert.Equal(t, "CA_CITY_GLENDALE", key)

	assert.Equal(t, "legal", *entries[0].LegalStatus)
	assert.True(t, *entries[1].PermitRequired)
	assert.Equal(t, 150.0, *entries[1].PermitFee)
	assert.Nil(t, entries[2].PermitFee)
}

func TestParseRegulations_Empty(t *testing.T) {
	path := writeTemp(t, "empty.yaml", "regulations: []\n")

	_, err := parseRegulations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no regulations")
}

func TestParseRegulations_Malformed(t *testing.T) {
	path := writeTemp(t, "bad.yaml", "regulations: {not a list\n")

	_, err := parseRegulations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestRegulationEntry_MissingState(t *testing.T) {
	_, err := regulationEntry{County: "Los Angeles"}.key()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing state")
}

func TestRegulations_Upsert(t *testing.T) {
	path := writeTemp(t, "regulations.yaml", regulationsYAML)

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_jurisdiction_regulations"}, regulationColumns).WillReturnResult(3)
	mock.ExpectExec(`INSERT INTO "jurisdiction_regulations".*ON CONFLICT`).WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()

	n, err := Regulations(context.Background(), mock, path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
