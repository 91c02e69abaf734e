// Package engine is the CGR orchestrator (spec.md §4.8, component C9):
// the single entry point that drives contact-plan mutation and the
// MSR → phase 1 ↔ phase 2 → phase 3 pipeline behind one mutex, so the
// core stays single-threaded and cooperative per spec.md §5.
package engine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"cgrengine/internal/bundle"
	"cgrengine/internal/candidate"
	"cgrengine/internal/chooser"
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
	"cgrengine/internal/msr"
	"cgrengine/internal/nodereg"
	"cgrengine/internal/routebuilder"
)

var tracer = otel.Tracer("cgrengine/internal/engine")

// Engine is the CGR engine handle returned by Initialize (spec.md §9
// DESIGN NOTES: "encapsulate [global state] in an explicit engine handle
// returned by initialize so tests can spin up isolated engines").
type Engine struct {
	mu sync.Mutex

	local  domain.NodeID
	policy domain.Policy
	lgr    logger.Logger

	store    *contactplan.Store
	registry *nodereg.Registry
	builder  *routebuilder.Builder
	chooser  *chooser.Chooser

	backlog bundle.BacklogQueryFunc

	lastNow       domain.Time
	lastEditSec   int64
	lastEditMicro int64
	destroyed     bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches a structured logger, propagated into the store,
// registry and route builder. The default is a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.lgr = l }
}

// WithPolicy overrides the default (Unibo-suggested) policy preset.
func WithPolicy(p domain.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithBacklogQuery attaches the host-supplied queue-occupancy callback
// phase 2 uses for ETO computation. Without one, every neighbor reports
// zero backlog, so the first-hop queue delay is always zero.
func WithBacklogQuery(f bundle.BacklogQueryFunc) Option {
	return func(e *Engine) { e.backlog = f }
}

// Initialize performs CGR's one-time setup (spec.md §6): ownNode must be
// non-zero, and referenceTime seeds the monotone clock-regression check
// every later GetBestRoutes call is held to.
func Initialize(ownNode domain.NodeID, referenceTime domain.Time, opts ...Option) (*Engine, error) {
	if ownNode == 0 {
		return nil, errBadArgument("ownNode must be non-zero")
	}

	e := &Engine{
		local:   ownNode,
		policy:  domain.DefaultPolicy(),
		lgr:     &logger.NopLogger{},
		lastNow: referenceTime,
		backlog: func(domain.NodeID, domain.Priority, int) (float64, float64) { return 0, 0 },
	}
	for _, o := range opts {
		o(e)
	}

	e.store = contactplan.New(contactplan.WithLogger(e.lgr.Named("contactplan")))
	if _, _, err := e.store.AddContact(domain.Contact{
		From: ownNode, To: ownNode,
		FromTime: 0, ToTime: domain.MaxTime,
		Type: domain.Registration,
	}); err != nil {
		return nil, errInternal("failed to seed local registration contact")
	}
	e.registry = nodereg.New(e.store, ownNode, nodereg.WithLogger(e.lgr.Named("nodereg")))
	e.builder = routebuilder.New(e.store, e.policy, routebuilder.WithLogger(e.lgr.Named("routebuilder")))
	e.chooser = chooser.New(e.store, e.policy)

	sec, micro := e.store.EditTime()
	e.lastEditSec, e.lastEditMicro = sec, micro

	e.lgr.Info("engine initialized", logger.F("localNode", ownNode))
	return e, nil
}

// AddContact mutates the contact plan, per spec.md §4.2.
func (e *Engine) AddContact(c domain.Contact) (domain.ContactHandle, contactplan.AddResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AddContact(c)
}

// AddRange mutates the contact plan, per spec.md §4.2.
func (e *Engine) AddRange(r domain.Range) (domain.RangeHandle, contactplan.AddResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AddRange(r)
}

// RemoveContact mutates the contact plan, per spec.md §4.2.
func (e *Engine) RemoveContact(h domain.ContactHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.RemoveContact(h)
}

// RemoveRange mutates the contact plan, per spec.md §4.2.
func (e *Engine) RemoveRange(h domain.RangeHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.RemoveRange(h)
}

// ReviseContactConfidence revises a contact's confidence in place; never
// invalidates citing routes (spec.md §4.2, §9 DESIGN NOTES (a)).
func (e *Engine) ReviseContactConfidence(h domain.ContactHandle, confidence float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ReviseConfidence(h, confidence)
}

// ReviseContactXmitRate revises a contact's transmission rate in place,
// invalidating every route citing it (spec.md §9 DESIGN NOTES (a)).
func (e *Engine) ReviseContactXmitRate(h domain.ContactHandle, xmitRate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ReviseXmitRate(h, xmitRate)
}

// Destroy tears the engine down: sweeps expired contacts one last time
// and releases all per-destination routing state.
func (e *Engine) Destroy(now domain.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.store.RemoveExpired(now)
	e.registry.ResetAll()
	e.store.Destroy()
	e.destroyed = true
	e.lgr.Info("engine destroyed")
}

// GetBestRoutes is CGR's main call (spec.md §4.8, §6): computes the
// forwarding set for bdl, given now (which must not regress against any
// previous call) and a caller-supplied excludedNeighbors blacklist. The
// returned int is spec.md §4.8's return code: n≥1 routes produced, 0 for
// a no-op, or one of the negative failure codes.
func (e *Engine) GetBestRoutes(ctx context.Context, now domain.Time, bdl domain.Bundle, excludedNeighbors map[domain.NodeID]struct{}) ([]domain.Route, int, error) {
	ctx, span := tracer.Start(ctx, "cgr.get_best_routes")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if now < e.lastNow {
		return nil, CodeClockRegression, errBadArgument("clock regression: now precedes a previous call")
	}
	e.lastNow = now

	if err := bundle.Validate(bdl); err != nil {
		return nil, CodePhase1ArgError, err
	}
	if bdl.ExpirationTime <= now {
		e.lgr.Debug("bundle already expired at call time", logger.F("terminus", bdl.Terminus))
		return nil, CodeNoOp, nil
	}
	if bdl.Terminus == e.local {
		return nil, CodeNoOp, nil
	}

	// Step 1: invalidate stale per-destination routes on contact-plan edit.
	sec, micro := e.store.EditTime()
	if sec != e.lastEditSec || micro != e.lastEditMicro {
		e.registry.ResetAll()
		e.lastEditSec, e.lastEditMicro = sec, micro
	}

	// Step 2: sweep expired contacts, materialize the destination node.
	e.store.RemoveExpired(now)
	e.registry.RemoveOldNeighbors(now)
	node := e.registry.Get(bdl.Terminus)

	// Step 3: merge excluded neighbors.
	excluded := mergeExcluded(excludedNeighbors, bdl, e.policy)

	selector := candidate.New(e.store, e.policy, e.backlog)

	// Step 4: MSR fast path.
	if e.policy.MSREnabled {
		_, msrSpan := tracer.Start(ctx, "cgr.msr")
		routes, code, ok := e.tryMSR(selector, bdl, now, excluded)
		msrSpan.End()
		if ok {
			return routes, code, nil
		}
	}

	// Step 5: P1 <-> P2 iteration.
	_, p1Span := tracer.Start(ctx, "cgr.phase1")
	candidates := e.runPipeline(node, bdl, now, excluded, selector)
	p1Span.End()

	if len(candidates) == 0 {
		return nil, CodeNoRoute, nil
	}

	// Step 6: P3.
	_, p3Span := tracer.Start(ctx, "cgr.phase3")
	forwarding := e.chooser.Choose(candidates, bdl)
	p3Span.End()

	if len(forwarding) == 0 {
		return nil, CodeNoRoute, nil
	}
	routes := e.materializeResults(forwarding)
	return routes, len(routes), nil
}

func mergeExcluded(base map[domain.NodeID]struct{}, bdl domain.Bundle, policy domain.Policy) map[domain.NodeID]struct{} {
	excluded := make(map[domain.NodeID]struct{}, len(base)+len(bdl.FailedNeighbors)+1)
	for n := range base {
		excluded[n] = struct{}{}
	}
	if policy.AvoidLoop == domain.AvoidLoopReactive || policy.AvoidLoop == domain.AvoidLoopBoth {
		for _, n := range bdl.FailedNeighbors {
			excluded[n] = struct{}{}
		}
	}
	if !bdl.Flags.BackwardPropagation {
		excluded[bdl.Sender] = struct{}{}
	}
	return excluded
}

func (e *Engine) tryMSR(selector *candidate.Selector, bdl domain.Bundle, now domain.Time, excluded map[domain.NodeID]struct{}) ([]domain.Route, int, bool) {
	res := msr.BuildRoute(e.store, e.policy, e.local, bdl, now)
	if !res.Matched {
		return nil, 0, false
	}
	rh := e.store.NewRoute(res.Route)
	candidates := selector.Select([]domain.RouteHandle{rh}, bdl, now, excluded)
	if len(candidates) == 0 {
		e.store.DeleteRoute(rh)
		return nil, 0, false
	}
	forwarding := e.chooser.Choose(candidates, bdl)
	if len(forwarding) == 0 {
		e.store.DeleteRoute(rh)
		return nil, 0, false
	}
	e.lgr.Debug("MSR fast path accepted", logger.F("terminus", bdl.Terminus))
	routes := e.materializeResults(forwarding)
	return routes, len(routes), true
}

func (e *Engine) materializeResults(handles []domain.RouteHandle) []domain.Route {
	out := make([]domain.Route, 0, len(handles))
	for _, h := range handles {
		if r, ok := e.store.Route(h); ok {
			out = append(out, r)
		}
	}
	return out
}
