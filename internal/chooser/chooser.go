// Package chooser is the phase 3 best-route chooser (spec.md §4.6,
// component C7): turns phase 2's surviving candidates into the
// forwarding set a bundle is actually queued on, and provides the
// comparator phase 3 and the MSR fast path both rank routes with.
package chooser

import (
	"sort"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

// Chooser selects a forwarding set from candidate routes under a fixed
// policy.
type Chooser struct {
	store  *contactplan.Store
	policy domain.Policy
}

// New creates a Chooser over store under policy.
func New(store *contactplan.Store, policy domain.Policy) *Chooser {
	return &Chooser{store: store, policy: policy}
}

// Choose produces the forwarding set for bdl from candidates (already
// filtered and annotated by internal/candidate). A critical bundle
// receives the best route to each unique neighbor, so CGR can send a
// copy through every neighbor that has a feasible path; further
// candidates through an already-chosen neighbor are not emitted. An
// expedited bundle also receives the best route to each unique
// neighbor. Any other bundle receives only the single best route.
func (c *Chooser) Choose(candidates []domain.RouteHandle, bdl domain.Bundle) []domain.RouteHandle {
	if len(candidates) == 0 {
		return nil
	}
	routes := c.load(candidates)

	if bdl.Flags.Critical {
		return bestPerNeighbor(routes, c.policy)
	}
	if bdl.Priority == domain.Expedited {
		return bestPerNeighbor(routes, c.policy)
	}

	best := routes[0]
	for _, r := range routes[1:] {
		if less(r.route, best.route, c.policy) {
			best = r
		}
	}
	return []domain.RouteHandle{best.handle}
}

type handleRoute struct {
	handle domain.RouteHandle
	route  domain.Route
}

func (c *Chooser) load(handles []domain.RouteHandle) []handleRoute {
	out := make([]handleRoute, 0, len(handles))
	for _, h := range handles {
		if r, ok := c.store.Route(h); ok {
			out = append(out, handleRoute{handle: h, route: r})
		}
	}
	return out
}

// bestPerNeighbor groups routes by neighbor and keeps only the best one
// (by the comparator) from each group, returned sorted by the same
// comparator so the winners are stable and deterministic across calls.
func bestPerNeighbor(routes []handleRoute, policy domain.Policy) []domain.RouteHandle {
	winners := make(map[domain.NodeID]handleRoute)
	for _, r := range routes {
		cur, ok := winners[r.route.Neighbor]
		if !ok || less(r.route, cur.route, policy) {
			winners[r.route.Neighbor] = r
		}
	}
	out := make([]handleRoute, 0, len(winners))
	for _, r := range winners {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].route, out[j].route, policy) })

	handles := make([]domain.RouteHandle, len(out))
	for i, r := range out {
		handles[i] = r.handle
	}
	return handles
}

// less reports whether a ranks strictly better than b under spec.md
// §4.6's comparator: loop class, then confidence, then pbat, then hop
// count, then owltSum, then neighbor node number as a deterministic
// final tiebreak.
func less(a, b domain.Route, policy domain.Policy) bool {
	if a.CheckValue != b.CheckValue {
		return a.CheckValue < b.CheckValue
	}
	if !policy.NeglectConfidence && a.ArrivalConfidence != b.ArrivalConfidence {
		return a.ArrivalConfidence > b.ArrivalConfidence
	}
	if a.PBAT != b.PBAT {
		return a.PBAT < b.PBAT
	}
	if len(a.Hops) != len(b.Hops) {
		return len(a.Hops) < len(b.Hops)
	}
	if a.OwltSum != b.OwltSum {
		return a.OwltSum < b.OwltSum
	}
	return a.Neighbor < b.Neighbor
}

// Less exports the comparator for internal/msr, which ranks MSR
// candidates against the same ordering phase 3 uses.
func Less(a, b domain.Route, policy domain.Policy) bool { return less(a, b, policy) }
