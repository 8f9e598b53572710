// Package resolver implements the jurisdiction compliance resolver: it
// builds jurisdiction keys for a requested location, fetches regulation and
// incentive data from the warehouse, and assembles per-level compliance
// results with a fixed precedence rule (city > county > state).
package resolver

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquareuse/directory-api/internal/jurisdiction"
	"github.com/aquareuse/directory-api/internal/model"
	"github.com/aquareuse/directory-api/internal/warehouse"
)

// Request identifies a location and resource filter to resolve.
type Request struct {
	State    string
	County   string
	City     string
	Resource model.ResourceType
}

var stateCodeRe = regexp.MustCompile(`^[A-Za-z]{2}$`)

// Validate checks the request's required fields. Resource is assumed to be
// parsed already (ParseResourceType).
func (r Request) Validate() error {
	if r.State == "" {
		return eris.New("state is required")
	}
	if !stateCodeRe.MatchString(r.State) {
		return eris.Errorf("state must be a 2-letter code, got %q", r.State)
	}
	return nil
}

// Outcome is the result of a resolution: the assembled compliance object
// plus data-quality flags for lookups that failed and were degraded to
// empty results.
type Outcome struct {
	Compliance        *model.Compliance
	RegulationsFailed bool
	IncentivesFailed  bool
}

// Resolver resolves compliance requests against an injected warehouse.
// Stateless; safe for concurrent use.
type Resolver struct {
	wh  warehouse.Warehouse
	log *zap.Logger
}

// New creates a Resolver backed by the given warehouse.
func New(wh warehouse.Warehouse) *Resolver {
	return &Resolver{wh: wh, log: zap.L().Named("resolver")}
}

// Resolve builds jurisdiction keys, runs both warehouse lookups
// concurrently, and assembles the compliance result. Lookup failures never
// fail the request: they degrade to empty data plus a flag on the Outcome.
// The only error return is request validation.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	keys := jurisdiction.BuildKeys(req.State, req.County, req.City)
	out := &Outcome{}

	var (
		regs       map[string]model.Regulation
		candidates []model.Candidate
	)

	// Both lookups depend only on the key set, so they run in parallel.
	// Errors are captured as degradation flags, never returned.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regs, err = r.wh.RegulationsByKeys(gctx, keys.Keys())
		if err != nil {
			r.log.Warn("regulation lookup failed",
				zap.String("state", keys.StateCode),
				zap.Error(err),
			)
			regs = map[string]model.Regulation{}
			out.RegulationsFailed = true
		}
		return nil
	})
	g.Go(func() error {
		var err error
		candidates, err = r.wh.CandidatePrograms(gctx, keys.Keys(), req.Resource)
		if err != nil {
			r.log.Warn("incentive lookup failed",
				zap.String("state", keys.StateCode),
				zap.Error(err),
			)
			candidates = nil
			out.IncentivesFailed = true
		}
		return nil
	})
	_ = g.Wait()

	names := levelNames{
		State:  keys.StateCode,
		County: jurisdiction.DisplayName(req.County),
		City:   jurisdiction.DisplayName(req.City),
	}
	out.Compliance = assemble(keys, names, regs, candidates, r.log)

	return out, nil
}
