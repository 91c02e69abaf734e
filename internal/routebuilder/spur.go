package routebuilder

import "cgrengine/internal/domain"

// ComputeSpurs runs the Yen-style k-shortest search for parent, rooted
// at each hop from parent's own spur root onward (Lawler's refinement:
// a route that is itself a spur child only explores hops at or after
// the one it deviated from, so its ancestors' shared prefix is never
// re-suppressed). siblings should include parent itself plus every
// other known/selected route for the same destination, so that the
// search is forced to deviate at each candidate spur node rather than
// silently reproducing an already-known path.
func (b *Builder) ComputeSpurs(local, dest domain.NodeID, now domain.Time, parentHandle domain.RouteHandle, siblings []domain.Route) ([]domain.RouteHandle, error) {
	parent, ok := b.store.Route(parentHandle)
	if !ok {
		return nil, errNotFound("parent route not found")
	}
	hops := parent.Hops
	if len(hops) == 0 {
		return nil, errNoRoute("parent route has no hops")
	}

	startIdx := 0
	if parent.RootOfSpur != 0 {
		for i, h := range hops {
			if h == parent.RootOfSpur {
				startIdx = i
				break
			}
		}
	}

	var children []domain.RouteHandle
	for i := startIdx; i < len(hops); i++ {
		rootPath := hops[:i+1]
		spurContact := hops[i]

		work := newWorkTable()
		for _, sib := range siblings {
			if len(sib.Hops) <= i || !hopsEqual(sib.Hops[:i+1], rootPath) {
				continue
			}
			if len(sib.Hops) > i+1 {
				work.suppress([]domain.ContactHandle{sib.Hops[i+1]})
			}
		}

		arrival, confidence, hopCount, owltSum, ok := ReplayPrefix(b.store, b.policy, local, rootPath, now)
		if !ok {
			continue
		}
		spurChain, err := runDijkstraFrom(b.store, b.policy, work, spurContact, arrival, confidence, hopCount, owltSum, dest)
		if err != nil {
			continue
		}

		fullChain := append(append([]domain.ContactHandle{}, rootPath...), spurChain...)
		route, ok := b.materialize(local, fullChain, now)
		if !ok {
			continue
		}
		route.RootOfSpur = spurContact
		route.CitationToFather = parentHandle

		rh := b.store.NewRoute(route)
		children = append(children, rh)
		if pr := b.store.RouteMut(parentHandle); pr != nil {
			pr.Children = append(pr.Children, rh)
		}
	}
	return children, nil
}

func hopsEqual(a, b []domain.ContactHandle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
