// Package model defines the domain types shared across the directory API:
// regulations, incentive programs, and the per-level compliance results
// returned by the resolver.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ResourceType filters incentive programs by the water resource they cover.
type ResourceType string

const (
	ResourceGreywater    ResourceType = "greywater"
	ResourceRainwater    ResourceType = "rainwater"
	ResourceConservation ResourceType = "conservation"
	ResourceAll          ResourceType = "all"
)

// ValidResourceTypes lists the accepted resource_type parameter values.
var ValidResourceTypes = []ResourceType{ResourceGreywater, ResourceRainwater, ResourceConservation, ResourceAll}

// ParseResourceType validates a resource_type parameter. Empty input
// defaults to ResourceAll.
func ParseResourceType(s string) (ResourceType, error) {
	if s == "" {
		return ResourceAll, nil
	}
	rt := ResourceType(strings.ToLower(s))
	for _, v := range ValidResourceTypes {
		if rt == v {
			return rt, nil
		}
	}
	return "", fmt.Errorf("invalid resource_type %q: must be one of greywater, rainwater, conservation, all", s)
}

// Regulation is one row of the jurisdiction-keyed regulation table.
// Pointer fields are nullable in the warehouse; the assembler substitutes
// documented defaults for nil values.
type Regulation struct {
	JurisdictionKey       string   `json:"jurisdiction_key"`
	LegalStatus           *string  `json:"legal_status,omitempty"`
	PermitRequired        *bool    `json:"permit_required,omitempty"`
	PermitThresholdGPD    *float64 `json:"permit_threshold_gpd,omitempty"`
	PermitFee             *float64 `json:"permit_fee,omitempty"`
	GreywaterAllowed      *bool    `json:"greywater_allowed,omitempty"`
	IndoorReuseAllowed    *bool    `json:"indoor_reuse_allowed,omitempty"`
	OutdoorReuseAllowed   *bool    `json:"outdoor_reuse_allowed,omitempty"`
	RegulationSummary     *string  `json:"regulation_summary,omitempty"`
	PrePlumbingMandate    *bool    `json:"pre_plumbing_mandate,omitempty"`
	PrePlumbingThreshold  *float64 `json:"pre_plumbing_threshold_sqft,omitempty"`
	PrePlumbingBuildTypes *string  `json:"pre_plumbing_building_types,omitempty"`
	PrePlumbingCodeRef    *string  `json:"pre_plumbing_code_ref,omitempty"`
	DocumentationURL      *string  `json:"documentation_url,omitempty"`
}

// Program is one row of the incentive program table.
type Program struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	ProgramType          *string  `json:"program_type,omitempty"`
	ProgramSubtype       *string  `json:"program_subtype,omitempty"`
	ResourceType         *string  `json:"resource_type,omitempty"`
	IncentiveAmountMin   *float64 `json:"incentive_amount_min,omitempty"`
	IncentiveAmountMax   *float64 `json:"incentive_amount_max,omitempty"`
	ResidentialEligible  bool     `json:"residential_eligible"`
	CommercialEligible   bool     `json:"commercial_eligible"`
	MunicipalEligible    bool     `json:"municipal_eligible"`
	AgriculturalEligible bool     `json:"agricultural_eligible"`
	ApplicationURL       *string  `json:"application_url,omitempty"`
	ContactInfo          *string  `json:"contact_info,omitempty"`
	RequiredDocs         *string  `json:"required_docs,omitempty"`
	Deadline             *string  `json:"deadline,omitempty"`
	Status               string   `json:"status"`
}

// Candidate is a program annotated with the jurisdiction link row that
// matched the request. One program may yield several candidates when it is
// linked to more than one requested jurisdiction.
type Candidate struct {
	Program
	LinkedJurisdictionKey string `json:"linked_jurisdiction_key"`
	CoverageType          string `json:"coverage_type"`
}

// Incentive is the stable public shape of a program assigned to a
// compliance level. It exposes a fixed field set rather than the raw
// warehouse row.
type Incentive struct {
	Name                string   `json:"name"`
	ProgramType         string   `json:"program_type,omitempty"`
	ResourceType        string   `json:"resource_type,omitempty"`
	AmountMin           *float64 `json:"amount_min,omitempty"`
	AmountMax           *float64 `json:"amount_max,omitempty"`
	ResidentialEligible bool     `json:"residential_eligible"`
	CommercialEligible  bool     `json:"commercial_eligible"`
	ApplicationURL      string   `json:"application_url,omitempty"`
	ContactInfo         string   `json:"contact_info,omitempty"`
	Deadline            string   `json:"deadline,omitempty"`
}

// LevelResult is the compliance picture for a single jurisdiction level.
type LevelResult struct {
	ComplianceLevel       string      `json:"compliance_level"`
	JurisdictionKey       string      `json:"jurisdiction_key"`
	JurisdictionName      string      `json:"jurisdiction_name"`
	LegalStatus           string      `json:"legal_status"`
	PermitRequired        bool        `json:"permit_required"`
	PermitThresholdGPD    *float64    `json:"permit_threshold_gpd,omitempty"`
	PermitFee             *float64    `json:"permit_fee,omitempty"`
	GreywaterAllowed      bool        `json:"greywater_allowed"`
	IndoorReuseAllowed    bool        `json:"indoor_reuse_allowed"`
	OutdoorReuseAllowed   bool        `json:"outdoor_reuse_allowed"`
	RegulationSummary     string      `json:"regulation_summary"`
	PrePlumbingMandate    bool        `json:"pre_plumbing_mandate"`
	PrePlumbingThreshold  *float64    `json:"pre_plumbing_threshold_sqft,omitempty"`
	PrePlumbingBuildTypes string      `json:"pre_plumbing_building_types,omitempty"`
	PrePlumbingCodeRef    string      `json:"pre_plumbing_code_ref,omitempty"`
	DocumentationURL      string      `json:"documentation_url,omitempty"`
	Incentives            []Incentive `json:"incentives"`
	IncentiveCount        int         `json:"incentive_count"`
	MaxIncentive          *float64    `json:"max_incentive"`
}

// Location echoes the requested location back to the caller.
type Location struct {
	State  string `json:"state"`
	County string `json:"county,omitempty"`
	City   string `json:"city,omitempty"`
}

// Compliance groups the per-level results plus the effective pointer.
// Effective aliases the most specific level that was requested and built.
type Compliance struct {
	State     *LevelResult `json:"state"`
	County    *LevelResult `json:"county,omitempty"`
	City      *LevelResult `json:"city,omitempty"`
	Effective *LevelResult `json:"effective"`
}

// ComplianceResponse is the full payload of the compliance endpoint.
type ComplianceResponse struct {
	Status       string       `json:"status"`
	Location     Location     `json:"location"`
	ResourceType ResourceType `json:"resource_type"`
	Compliance   *Compliance  `json:"compliance"`
	PartialData  bool         `json:"partial_data"`
	DataWarnings []string     `json:"data_warnings"`
	Timestamp    time.Time    `json:"timestamp"`
}
