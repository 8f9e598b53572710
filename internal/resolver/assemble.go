package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aquareuse/directory-api/internal/jurisdiction"
	"github.com/aquareuse/directory-api/internal/model"
)

// levelNames carries display names for the requested jurisdiction levels.
type levelNames struct {
	State  string
	County string
	City   string
}

// assemble builds the full compliance object from the lookup outputs.
// Pure: no I/O, no errors.
func assemble(keys jurisdiction.KeySet, names levelNames, regs map[string]model.Regulation, candidates []model.Candidate, log *zap.Logger) *model.Compliance {
	c := &model.Compliance{}

	c.State = mergeRegulation(jurisdiction.LevelState, keys.StateKey, names.State, lookup(regs, keys.StateKey))
	if keys.CountyKey != "" {
		c.County = mergeRegulation(jurisdiction.LevelCounty, keys.CountyKey, names.County, lookup(regs, keys.CountyKey))
	}
	if keys.CityKey != "" {
		c.City = mergeRegulation(jurisdiction.LevelCity, keys.CityKey, names.City, lookup(regs, keys.CityKey))
	}

	dropped := 0
	for _, cand := range dedupe(candidates, keys) {
		level, ok := assign(cand, keys)
		if !ok {
			dropped++
			continue
		}
		var lr *model.LevelResult
		switch level {
		case jurisdiction.LevelCity:
			lr = c.City
		case jurisdiction.LevelCounty:
			lr = c.County
		case jurisdiction.LevelState:
			lr = c.State
		}
		if lr == nil {
			dropped++
			continue
		}
		addIncentive(lr, cand)
	}
	if dropped > 0 && log != nil {
		// Unassignable links are dropped by contract; the count surfaces
		// data-shape drift without failing the request.
		log.Debug("dropped unassignable program links", zap.Int("count", dropped))
	}

	switch {
	case c.City != nil:
		c.Effective = c.City
	case c.County != nil:
		c.Effective = c.County
	default:
		c.Effective = c.State
	}

	return c
}

func lookup(regs map[string]model.Regulation, key string) *model.Regulation {
	if r, ok := regs[key]; ok {
		return &r
	}
	return nil
}

func defaultSummary(level jurisdiction.Level, name string) string {
	switch level {
	case jurisdiction.LevelCounty:
		return fmt.Sprintf("%s County defers to state regulations.", name)
	case jurisdiction.LevelCity:
		return fmt.Sprintf("%s follows county and state regulations.", name)
	}
	return fmt.Sprintf("%s has no statewide greywater regulation on file; systems are generally allowed subject to local review.", name)
}

// mergeRegulation maps a regulation row onto a level result field by field,
// substituting a default for every nil column. Silence is read as
// permissive: greywater and outdoor reuse default to allowed, while
// permits, indoor reuse, and pre-plumbing mandates default to not
// required. r may be nil (no row for the jurisdiction), which yields a
// fully defaulted result.
func mergeRegulation(level jurisdiction.Level, key, name string, r *model.Regulation) *model.LevelResult {
	if r == nil {
		r = &model.Regulation{}
	}
	return &model.LevelResult{
		ComplianceLevel:       level.String(),
		JurisdictionKey:       key,
		JurisdictionName:      name,
		LegalStatus:           strOr(r.LegalStatus, "unregulated"),
		PermitRequired:        boolOr(r.PermitRequired, false),
		PermitThresholdGPD:    r.PermitThresholdGPD,
		PermitFee:             r.PermitFee,
		GreywaterAllowed:      boolOr(r.GreywaterAllowed, true),
		IndoorReuseAllowed:    boolOr(r.IndoorReuseAllowed, false),
		OutdoorReuseAllowed:   boolOr(r.OutdoorReuseAllowed, true),
		RegulationSummary:     strOr(r.RegulationSummary, defaultSummary(level, name)),
		PrePlumbingMandate:    boolOr(r.PrePlumbingMandate, false),
		PrePlumbingThreshold:  r.PrePlumbingThreshold,
		PrePlumbingBuildTypes: strOr(r.PrePlumbingBuildTypes, ""),
		PrePlumbingCodeRef:    strOr(r.PrePlumbingCodeRef, ""),
		DocumentationURL:      strOr(r.DocumentationURL, ""),
		Incentives:            []model.Incentive{},
	}
}

// specificity ranks a candidate's link for deduplication. Higher is more
// local: city link > county link > direct state link > state-wide coverage
// > utility coverage > unassignable.
func specificity(c model.Candidate, keys jurisdiction.KeySet) int {
	switch {
	case keys.CityKey != "" && c.LinkedJurisdictionKey == keys.CityKey:
		return 5
	case keys.CountyKey != "" && c.LinkedJurisdictionKey == keys.CountyKey:
		return 4
	case c.LinkedJurisdictionKey == keys.StateKey:
		return 3
	}
	switch jurisdiction.ParseCoverageType(c.CoverageType) {
	case jurisdiction.CoverageState:
		return 2
	case jurisdiction.CoverageUtility:
		return 1
	case jurisdiction.CoverageJurisdiction:
		return 0
	}
	return 0
}

// dedupe collapses candidates sharing a program name to a single entry,
// keeping the most specific link among them (ties keep the first seen).
// Output preserves the first-seen order of names, which the warehouse
// already sorts by program name.
func dedupe(candidates []model.Candidate, keys jurisdiction.KeySet) []model.Candidate {
	best := make(map[string]int, len(candidates))
	var order []string
	byName := make(map[string]model.Candidate, len(candidates))

	for _, c := range candidates {
		rank := specificity(c, keys)
		prev, seen := best[c.Name]
		if !seen {
			best[c.Name] = rank
			byName[c.Name] = c
			order = append(order, c.Name)
			continue
		}
		if rank > prev {
			best[c.Name] = rank
			byName[c.Name] = c
		}
	}

	out := make([]model.Candidate, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

// assign places a deduplicated candidate at exactly one level. Precedence,
// first match wins: requested city link, requested county link, state-wide
// coverage or direct state link, then utility coverage (surfaced at state
// level since utilities are not a jurisdiction tier). Anything else is
// dropped.
func assign(c model.Candidate, keys jurisdiction.KeySet) (jurisdiction.Level, bool) {
	if keys.CityKey != "" && c.LinkedJurisdictionKey == keys.CityKey {
		return jurisdiction.LevelCity, true
	}
	if keys.CountyKey != "" && c.LinkedJurisdictionKey == keys.CountyKey {
		return jurisdiction.LevelCounty, true
	}
	if c.LinkedJurisdictionKey == keys.StateKey {
		return jurisdiction.LevelState, true
	}
	switch jurisdiction.ParseCoverageType(c.CoverageType) {
	case jurisdiction.CoverageState, jurisdiction.CoverageUtility:
		return jurisdiction.LevelState, true
	case jurisdiction.CoverageJurisdiction:
		return 0, false
	}
	return 0, false
}

// addIncentive appends the candidate's public shape to a level and updates
// the level's running aggregates.
func addIncentive(lr *model.LevelResult, c model.Candidate) {
	lr.Incentives = append(lr.Incentives, model.Incentive{
		Name:                c.Name,
		ProgramType:         strOr(c.ProgramType, ""),
		ResourceType:        strOr(c.Program.ResourceType, ""),
		AmountMin:           c.IncentiveAmountMin,
		AmountMax:           c.IncentiveAmountMax,
		ResidentialEligible: c.ResidentialEligible,
		CommercialEligible:  c.CommercialEligible,
		ApplicationURL:      strOr(c.ApplicationURL, ""),
		ContactInfo:         strOr(c.ContactInfo, ""),
		Deadline:            strOr(c.Deadline, ""),
	})
	lr.IncentiveCount = len(lr.Incentives)
	if c.IncentiveAmountMax != nil {
		if lr.MaxIncentive == nil || *c.IncentiveAmountMax > *lr.MaxIncentive {
			v := *c.IncentiveAmountMax
			lr.MaxIncentive = &v
		}
	}
}

func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
