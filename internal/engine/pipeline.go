package engine

import (
	"cgrengine/internal/candidate"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
	"cgrengine/internal/nodereg"
)

// maxPipelineIterations bounds the P1<->P2 iteration loop: each round
// either discovers at least one new route or drains one entry from
// knownRoutes, so real contact plans converge in a handful of rounds;
// this is a safety valve against a pathological spur explosion, not a
// behavioral limit.
const maxPipelineIterations = 10_000

// runPipeline drives spec.md §4.8 step 4's "P1<->P2 iteration": phase 1
// discovers routes through any still-unrouted local neighbor, phase 2
// filters them against bdl, and if nothing survives, a spur from Yen's
// list B is promoted into list A before the next round. It returns the
// surviving candidate routes, or nil once both phase 1 and the spur
// backlog are exhausted.
func (e *Engine) runPipeline(node *nodereg.Node, bdl domain.Bundle, now domain.Time, excluded map[domain.NodeID]struct{}, selector *candidate.Selector) []domain.RouteHandle {
	for i := 0; i < maxPipelineIterations; i++ {
		foundNew := e.discoverFromUnroutedNeighbors(node, bdl, now, excluded)

		candidates := selector.Select(node.SelectedRoutes, bdl, now, excluded)
		if len(candidates) > 0 {
			return candidates
		}

		if !foundNew {
			if !e.promoteSpur(node, now) {
				return nil
			}
		}
	}
	e.lgr.Warn("pipeline iteration cap reached", logger.F("destination", node.Destination))
	return nil
}

// discoverFromUnroutedNeighbors runs phase 1 once for every local
// neighbor not yet cited for this destination, registering any new
// routes (and their Yen spurs) into node. A critical bundle always gets
// an unlimited phase 1 search (spec.md §4.4), since phase 3's critical
// fan-out (§4.6) needs every feasible path as a candidate, not just the
// policy's ordinary per-call cap.
func (e *Engine) discoverFromUnroutedNeighbors(node *nodereg.Node, bdl domain.Bundle, now domain.Time, excluded map[domain.NodeID]struct{}) bool {
	unrouted := e.registry.UnroutedNeighbors(node.Destination, now)
	hasSearchable := false
	for _, n := range unrouted {
		if _, ex := excluded[n]; !ex {
			hasSearchable = true
			break
		}
	}
	if !hasSearchable {
		return false
	}

	suppressed := make(map[domain.NodeID]struct{}, len(excluded)+len(node.Citations))
	for n := range excluded {
		suppressed[n] = struct{}{}
	}
	for n := range node.Citations {
		suppressed[n] = struct{}{}
	}

	maxRoutes := e.policy.MaxDijkstraRoutes
	if bdl.Flags.Critical {
		maxRoutes = 0
	}
	handles, err := e.builder.BuildRoutes(e.local, node.Destination, now, maxRoutes, suppressed)
	if err != nil || len(handles) == 0 {
		return false
	}
	for _, rh := range handles {
		e.registerRoute(node, rh, now)
	}
	return true
}

// promoteSpur pops the next spur from node.KnownRoutes (Yen's list B)
// into node.SelectedRoutes (list A) and computes its own children, per
// spec.md §4.5's "promote one via Yen bookkeeping" instruction.
func (e *Engine) promoteSpur(node *nodereg.Node, now domain.Time) bool {
	if len(node.KnownRoutes) == 0 {
		return false
	}
	promoted := node.KnownRoutes[0]
	node.KnownRoutes = node.KnownRoutes[1:]
	if _, ok := e.store.Route(promoted); !ok {
		return true // drop the stale handle, let the loop try the next one
	}
	e.registerRoute(node, promoted, now)
	return true
}

// registerRoute records rh as selected for node (updating citations) and
// computes its Yen/Lawler spur children into node.KnownRoutes.
func (e *Engine) registerRoute(node *nodereg.Node, rh domain.RouteHandle, now domain.Time) {
	route, ok := e.store.Route(rh)
	if !ok {
		return
	}
	node.SelectedRoutes = append(node.SelectedRoutes, rh)
	node.Citations[route.Neighbor] = struct{}{}

	siblings := make([]domain.Route, 0, len(node.SelectedRoutes))
	for _, h := range node.SelectedRoutes {
		if r, ok := e.store.Route(h); ok {
			siblings = append(siblings, r)
		}
	}
	children, err := e.builder.ComputeSpurs(e.local, node.Destination, now, rh, siblings)
	if err != nil {
		return
	}
	node.KnownRoutes = append(node.KnownRoutes, children...)
}
