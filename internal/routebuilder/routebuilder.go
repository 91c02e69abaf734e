// Package routebuilder is the phase 1 route builder (spec.md §4.4,
// component C5): a time-expanded Dijkstra search over contacts, repeated
// per unrouted local neighbor to produce up to N routes to a
// destination, plus a Yen/Lawler k-shortest spur search invoked when
// phase 2 exhausts every selected route but the destination may still be
// reachable by deviating from them.
package routebuilder

import (
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
)

// Builder runs Dijkstra/Yen searches against a contact-plan store under
// a fixed routing policy.
type Builder struct {
	store  *contactplan.Store
	policy domain.Policy
	lgr    logger.Logger
}

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) { b.lgr = l }
}

// New creates a Builder over store under policy.
func New(store *contactplan.Store, policy domain.Policy, opts ...Option) *Builder {
	b := &Builder{store: store, policy: policy, lgr: &logger.NopLogger{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// BuildRoutes computes up to maxRoutes routes from local to dest
// (0 = unlimited), suppressing the local node's outbound contacts
// through each newly discovered neighbor before searching for the next
// one, and suppressing every neighbor in excludeNeighbors up front
// (already-routed neighbors and phase 2's reactive-loop-avoidance
// blacklist). It registers each route in the contact-plan store and
// returns the resulting handles in discovery order.
func (b *Builder) BuildRoutes(local, dest domain.NodeID, now domain.Time, maxRoutes int, excludeNeighbors map[domain.NodeID]struct{}) ([]domain.RouteHandle, error) {
	work := newWorkTable()
	for neighbor := range excludeNeighbors {
		b.suppressNeighbor(work, local, neighbor)
	}

	var handles []domain.RouteHandle
	var lastErr error
	for maxRoutes <= 0 || len(handles) < maxRoutes {
		work.resetForNewSearch()
		chain, err := runDijkstra(b.store, b.policy, work, local, dest, now)
		if err != nil {
			lastErr = err
			break
		}
		route, ok := b.materialize(local, chain, now)
		if !ok {
			break
		}
		rh := b.store.NewRoute(route)
		handles = append(handles, rh)
		b.lgr.Debug("route computed", logger.FRoute("route", route))
		b.suppressNeighbor(work, local, route.Neighbor)
	}
	if len(handles) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errNoRoute("no route found to destination")
	}
	return handles, nil
}

// IntermediateNodes returns every node the route passes through before
// reaching its final hop's destination, in traversal order. Nothing in
// internal/engine calls it: the AddComputedRouteToIntermediates policy
// flag is carried in domain.Policy, but the orchestrator does not push
// computed routes into intermediate nodes' SelectedRoutes.
func IntermediateNodes(store *contactplan.Store, route domain.Route) []domain.NodeID {
	var out []domain.NodeID
	for i := 0; i < len(route.Hops)-1; i++ {
		if c, ok := store.Contact(route.Hops[i]); ok {
			out = append(out, c.To)
		}
	}
	return out
}

func (b *Builder) suppressNeighbor(work *workTable, local, neighbor domain.NodeID) {
	for _, h := range b.store.OutboundFrom(local) {
		c, ok := b.store.Contact(h)
		if ok && c.To == neighbor {
			work.suppress([]domain.ContactHandle{h})
		}
	}
}

// materialize turns a hop chain into a domain.Route, deterministically
// replaying the same arrival/confidence/owlt formulas the search used so
// the route does not need to carry its producing workTable.
func (b *Builder) materialize(local domain.NodeID, chain []domain.ContactHandle, now domain.Time) (domain.Route, bool) {
	return Materialize(b.store, b.policy, local, chain, now)
}

// Materialize builds a domain.Route from a raw contact chain rooted at
// local, replaying the search's relaxation formula to fill in
// arrival/confidence/owlt. Exported so internal/msr can turn a
// source-routed hop chain it matched (but did not search for) into a
// proper route the rest of the pipeline can consume identically.
func Materialize(store *contactplan.Store, policy domain.Policy, local domain.NodeID, chain []domain.ContactHandle, now domain.Time) (domain.Route, bool) {
	if len(chain) == 0 {
		return domain.Route{}, false
	}
	arrival, confidence, _, owltSum, ok := ReplayPrefix(store, policy, local, chain, now)
	if !ok {
		return domain.Route{}, false
	}
	first, ok := store.Contact(chain[0])
	if !ok {
		return domain.Route{}, false
	}
	minToTime := first.ToTime
	for _, h := range chain[1:] {
		c, ok := store.Contact(h)
		if !ok {
			return domain.Route{}, false
		}
		if c.ToTime < minToTime {
			minToTime = c.ToTime
		}
	}
	return domain.Route{
		Neighbor:          first.To,
		FromTime:          first.FromTime,
		ToTime:            minToTime,
		ArrivalTime:       arrival,
		ArrivalConfidence: confidence,
		OwltSum:           owltSum,
		Hops:              append([]domain.ContactHandle(nil), chain...),
		ComputedAtTime:    now,
		CheckValue:        domain.Unchecked,
	}, true
}

// ReplayPrefix deterministically recomputes the arrival state produced
// by traversing hops in order from local's registration contact,
// reusing the exact relaxation formula runDijkstraFrom applies (owlt
// lookup, range-rate margin, confidence product, hop count, owltSum).
// Exported so internal/msr can derive the same arrival state for a
// source-routed hop chain it did not search for itself.
func ReplayPrefix(store *contactplan.Store, policy domain.Policy, local domain.NodeID, hops []domain.ContactHandle, now domain.Time) (arrival domain.Time, confidence float64, hopCount int, owltSum domain.Time, ok bool) {
	arrival = now
	confidence = 1
	fromNode := local
	for _, h := range hops {
		c, found := store.Contact(h)
		if !found {
			return 0, 0, 0, 0, false
		}
		refTime := arrival
		if c.FromTime > refTime {
			refTime = c.FromTime
		}
		owlt, found := store.GetApplicableRange(fromNode, c.To, refTime)
		if !found {
			return 0, 0, 0, 0, false
		}
		margin := domain.Time(float64(owlt) * (policy.MaxSpeedMph / domain.LightSpeedMph))
		arrival = refTime + owlt + margin
		confidence *= c.Confidence
		hopCount++
		owltSum += owlt
		fromNode = c.To
	}
	return arrival, confidence, hopCount, owltSum, true
}
