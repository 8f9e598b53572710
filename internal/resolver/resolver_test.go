package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquareuse/directory-api/internal/jurisdiction"
	"github.com/aquareuse/directory-api/internal/model"
)

// fakeWarehouse returns canned data or errors for resolver tests.
type fakeWarehouse struct {
	regs       map[string]model.Regulation
	candidates []model.Candidate
	regErr     error
	candErr    error
}

func (f *fakeWarehouse) RegulationsByKeys(_ context.Context, _ []string) (map[string]model.Regulation, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	if f.regs == nil {
		return map[string]model.Regulation{}, nil
	}
	return f.regs, nil
}

func (f *fakeWarehouse) CandidatePrograms(_ context.Context, _ []string, _ model.ResourceType) ([]model.Candidate, error) {
	if f.candErr != nil {
		return nil, f.candErr
	}
	return f.candidates, nil
}

func (f *fakeWarehouse) Migrate(context.Context) error { return nil }
func (f *fakeWarehouse) Close() error                  { return nil }

func candidate(name, linkedKey, coverage string, amountMax *float64) model.Candidate {
	return model.Candidate{
		Program: model.Program{
			ID:                  "id-" + name,
			Name:                name,
			IncentiveAmountMax:  amountMax,
			ResidentialEligible: true,
			Status:              "active",
		},
		LinkedJurisdictionKey: linkedKey,
		CoverageType:          coverage,
	}
}

func f64(v float64) *float64 { return &v }

func TestResolve_ValidatesState(t *testing.T) {
	r := New(&fakeWarehouse{})

	_, err := r.Resolve(context.Background(), Request{State: "", Resource: model.ResourceAll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state is required")

	_, err = r.Resolve(context.Background(), Request{State: "California", Resource: model.ResourceAll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2-letter")
}

func TestResolve_StateOnly_Defaults(t *testing.T) {
	r := New(&fakeWarehouse{})

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	c := out.Compliance
	require.NotNil(t, c.State)
	assert.Nil(t, c.County)
	assert.Nil(t, c.City)
	assert.Same(t, c.State, c.Effective)

	assert.Equal(t, "state", c.State.ComplianceLevel)
	assert.Equal(t, "CA_STATE", c.State.JurisdictionKey)
	assert.Equal(t, "unregulated", c.State.LegalStatus)
	assert.True(t, c.State.GreywaterAllowed)
	assert.True(t, c.State.OutdoorReuseAllowed)
	assert.False(t, c.State.IndoorReuseAllowed)
	assert.False(t, c.State.PermitRequired)
	assert.Contains(t, c.State.RegulationSummary, "CA")
	assert.Empty(t, c.State.Incentives)
	assert.Zero(t, c.State.IncentiveCount)
	assert.Nil(t, c.State.MaxIncentive)
}

func TestResolve_RegulationMerge(t *testing.T) {
	legal := "permit"
	summary := "Permit required above 250 GPD."
	allowed := false
	wh := &fakeWarehouse{
		regs: map[string]model.Regulation{
			"CA_STATE": {
				JurisdictionKey:   "CA_STATE",
				LegalStatus:       &legal,
				GreywaterAllowed:  &allowed,
				RegulationSummary: &summary,
			},
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	st := out.Compliance.State
	assert.Equal(t, "permit", st.LegalStatus)
	assert.False(t, st.GreywaterAllowed)
	assert.Equal(t, summary, st.RegulationSummary)
	// Unset columns still get defaults.
	assert.True(t, st.OutdoorReuseAllowed)
}

func TestResolve_CountyDefaultSummary(t *testing.T) {
	r := New(&fakeWarehouse{})

	out, err := r.Resolve(context.Background(), Request{State: "CA", County: "Los Angeles", Resource: model.ResourceAll})
	require.NoError(t, err)

	county := out.Compliance.County
	require.NotNil(t, county)
	assert.Equal(t, "Los Angeles County defers to state regulations.", county.RegulationSummary)
	assert.Same(t, county, out.Compliance.Effective)
}

func TestResolve_PrecedenceCityOverCounty(t *testing.T) {
	// A program linked only to the city must appear under city, never
	// county or state, even when the county was also requested.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Glendale Rebate", "CA_CITY_GLENDALE", "jurisdiction", f64(500)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{
		State: "CA", County: "Los Angeles", City: "Glendale", Resource: model.ResourceAll,
	})
	require.NoError(t, err)

	c := out.Compliance
	assert.Equal(t, 1, c.City.IncentiveCount)
	assert.Zero(t, c.County.IncentiveCount)
	assert.Zero(t, c.State.IncentiveCount)
}

func TestResolve_CountyAssignment(t *testing.T) {
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("County Rebate", "CA_COUNTY_LOS_ANGELES", "jurisdiction", nil),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{
		State: "CA", County: "Los Angeles", City: "Glendale", Resource: model.ResourceAll,
	})
	require.NoError(t, err)

	c := out.Compliance
	assert.Zero(t, c.City.IncentiveCount)
	assert.Equal(t, 1, c.County.IncentiveCount)
	assert.Zero(t, c.State.IncentiveCount)
}

func TestResolve_UtilityFallbackToState(t *testing.T) {
	// Utility-wide programs surface at state level even without a direct
	// state link.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Utility Rebate", "CA_UTILITY_LADWP", "utility", f64(250)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	st := out.Compliance.State
	require.Equal(t, 1, st.IncentiveCount)
	assert.Equal(t, "Utility Rebate", st.Incentives[0].Name)
	assert.Equal(t, 250.0, *st.MaxIncentive)
}

func TestResolve_UnassignableDropped(t *testing.T) {
	// Jurisdiction-specific link outside the requested set, with no
	// state or utility coverage: silently dropped.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Other City Rebate", "CA_CITY_FRESNO", "jurisdiction", f64(900)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", City: "Glendale", Resource: model.ResourceAll})
	require.NoError(t, err)

	assert.Zero(t, out.Compliance.City.IncentiveCount)
	assert.Zero(t, out.Compliance.State.IncentiveCount)
}

func TestResolve_MaxIncentive(t *testing.T) {
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("A", "CA_STATE", "state", f64(100)),
			candidate("B", "CA_STATE", "state", nil),
			candidate("C", "CA_STATE", "state", f64(500)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	st := out.Compliance.State
	assert.Equal(t, 3, st.IncentiveCount)
	require.NotNil(t, st.MaxIncentive)
	assert.Equal(t, 500.0, *st.MaxIncentive)
}

func TestResolve_DedupeKeepsMostSpecificLink(t *testing.T) {
	// One program linked at both state and city: exactly one output entry,
	// assigned to the city. The warehouse orders candidates by name, so the
	// state link arrives first; the city link must still win.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Rain Barrel Rebate", "CA_STATE", "state", f64(100)),
			candidate("Rain Barrel Rebate", "CA_CITY_GLENDALE", "jurisdiction", f64(100)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", City: "Glendale", Resource: model.ResourceAll})
	require.NoError(t, err)

	c := out.Compliance
	assert.Equal(t, 1, c.City.IncentiveCount)
	assert.Zero(t, c.State.IncentiveCount)
}

func TestResolve_DedupeTieKeepsFirstSeen(t *testing.T) {
	// Two links for the same program at the same specificity (both utility
	// coverage): the first-seen link's data must survive the dedupe.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Rain Barrel Rebate", "CA_UTILITY_LADWP", "utility", f64(75)),
			candidate("Rain Barrel Rebate", "CA_UTILITY_SCV", "utility", f64(125)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	st := out.Compliance.State
	require.Equal(t, 1, st.IncentiveCount)
	assert.Equal(t, 75.0, *st.MaxIncentive)
}

func TestResolve_GracefulDegradation_Regulations(t *testing.T) {
	wh := &fakeWarehouse{
		regErr: errors.New("warehouse timeout"),
		candidates: []model.Candidate{
			candidate("State Rebate", "CA_STATE", "state", f64(300)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	assert.True(t, out.RegulationsFailed)
	assert.False(t, out.IncentivesFailed)
	// Default-filled state object is still present, and the incentive
	// lookup result is unaffected.
	require.NotNil(t, out.Compliance.State)
	assert.Equal(t, "unregulated", out.Compliance.State.LegalStatus)
	assert.Equal(t, 1, out.Compliance.State.IncentiveCount)
}

func TestResolve_GracefulDegradation_Incentives(t *testing.T) {
	wh := &fakeWarehouse{candErr: errors.New("malformed query")}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)

	assert.True(t, out.IncentivesFailed)
	assert.False(t, out.RegulationsFailed)
	assert.Empty(t, out.Compliance.State.Incentives)
}

func TestResolve_EffectiveSelection(t *testing.T) {
	r := New(&fakeWarehouse{})

	out, err := r.Resolve(context.Background(), Request{State: "CA", Resource: model.ResourceAll})
	require.NoError(t, err)
	assert.Same(t, out.Compliance.State, out.Compliance.Effective)

	out, err = r.Resolve(context.Background(), Request{
		State: "CA", County: "Los Angeles", City: "Glendale", Resource: model.ResourceAll,
	})
	require.NoError(t, err)
	assert.Same(t, out.Compliance.City, out.Compliance.Effective)
}

func TestResolve_EndToEndScenario(t *testing.T) {
	// CA / Los Angeles / Glendale, one active city-linked rebate with max
	// $500, no regulation rows anywhere.
	wh := &fakeWarehouse{
		candidates: []model.Candidate{
			candidate("Glendale Greywater Rebate", "CA_CITY_GLENDALE", "jurisdiction", f64(500)),
		},
	}
	r := New(wh)

	out, err := r.Resolve(context.Background(), Request{
		State: "CA", County: "Los Angeles", City: "Glendale", Resource: model.ResourceAll,
	})
	require.NoError(t, err)

	c := out.Compliance
	assert.Equal(t, 1, c.City.IncentiveCount)
	assert.Equal(t, 500.0, *c.City.MaxIncentive)
	assert.Equal(t, defaultSummary(jurisdiction.LevelState, "CA"), c.State.RegulationSummary)
	assert.Same(t, c.City, c.Effective)
}
