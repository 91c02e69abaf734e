// Package candidate is the phase 2 candidate selection stage (spec.md
// §4.5, component C6): filters a destination's selected routes down to
// the ones feasible for a specific bundle, computing each survivor's
// ETO, PBAT, route volume limit and loop-avoidance check value along the
// way so phase 3 (internal/chooser) never has to recompute them.
package candidate

import (
	"cgrengine/internal/bundle"
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

// Selector evaluates routes against a bundle under a fixed policy.
type Selector struct {
	store   *contactplan.Store
	policy  domain.Policy
	backlog bundle.BacklogQueryFunc
}

// New creates a Selector over store under policy, using backlog to query
// per-neighbor queue occupancy for the ETO computation.
func New(store *contactplan.Store, policy domain.Policy, backlog bundle.BacklogQueryFunc) *Selector {
	return &Selector{store: store, policy: policy, backlog: backlog}
}

// Select filters routes (a destination's selectedRoutes, in phase-1
// discovery order) down to the ones that survive feasibility, loop
// avoidance, deadline, route-volume-limit and confidence-floor checks
// for bdl, annotating each survivor's ETO/PBAT/RouteVolumeLimit/
// CheckValue fields in the store as it goes. excludedNeighbors is the
// orchestrator's merged blacklist: the caller's excluded set, the
// bundle's failed neighbors under reactive loop avoidance, and the
// sender unless backward propagation is allowed.
func (s *Selector) Select(routes []domain.RouteHandle, bdl domain.Bundle, now domain.Time, excludedNeighbors map[domain.NodeID]struct{}) []domain.RouteHandle {
	var out []domain.RouteHandle
	for _, rh := range routes {
		if s.evaluate(rh, bdl, now, excludedNeighbors) {
			out = append(out, rh)
		}
	}
	return out
}

func (s *Selector) evaluate(rh domain.RouteHandle, bdl domain.Bundle, now domain.Time, excludedNeighbors map[domain.NodeID]struct{}) bool {
	route, ok := s.store.Route(rh)
	if !ok || len(route.Hops) == 0 {
		return false
	}

	// 1. Feasibility.
	if route.ToTime <= now {
		return false
	}
	if _, excluded := excludedNeighbors[route.Neighbor]; excluded {
		return false
	}

	// 2. Loop avoidance.
	checkValue, reject := s.checkLoop(route, bdl)
	if reject {
		return false
	}

	// 3. ETO / queue delay.
	firstHop, ok := s.store.Contact(route.Hops[0])
	if !ok {
		return false
	}
	applicableBacklog, _ := s.backlog(route.Neighbor, bdl.Priority, bdl.Ordinal)
	delay := queueDelay(applicableBacklog, firstHop.XmitRate)
	if s.policy.QueueDelay == domain.QueueDelayAllHops {
		delay += s.perHopDelay(route, bdl.Priority)
	}
	eto := now
	if route.FromTime > eto {
		eto = route.FromTime
	}
	eto += delay

	// 4. Projected bundle arrival time.
	pbat := route.ArrivalTime + delay

	// 5. Deadline.
	if pbat > bdl.ExpirationTime {
		return false
	}

	// 6. Route volume limit.
	rvl := s.routeVolumeLimit(route, bdl.Priority)
	if bdl.EVC > rvl && !bdl.Flags.Fragmentable && !bdl.Flags.Critical {
		return false
	}

	// 7. Confidence floor.
	if !s.policy.NeglectConfidence && !bdl.Flags.Critical {
		if route.ArrivalConfidence < bdl.DlvConfidence+s.policy.MinConfidenceImprovement {
			return false
		}
	}

	if rm := s.store.RouteMut(rh); rm != nil {
		rm.ETO = eto
		rm.PBAT = pbat
		rm.RouteVolumeLimit = rvl
		rm.CheckValue = checkValue
	}
	return true
}

// checkLoop applies spec.md §4.5 step 2. A closing loop is rejected
// outright unless the bundle is critical, in which case it is kept with
// its demoted check value so phase 3 can still fall back to it when
// nothing better survives. A possible loop and a failed-neighbor hit are
// always kept, only ranked worse by internal/chooser's comparator.
func (s *Selector) checkLoop(route domain.Route, bdl domain.Bundle) (domain.CheckValue, bool) {
	checkValue := domain.NoLoop

	if s.policy.AvoidLoop == domain.AvoidLoopReactive || s.policy.AvoidLoop == domain.AvoidLoopBoth {
		for _, failed := range bdl.FailedNeighbors {
			if failed == route.Neighbor {
				checkValue = domain.FailedNeighbor
				break
			}
		}
	}

	if s.policy.AvoidLoop == domain.AvoidLoopProactive || s.policy.AvoidLoop == domain.AvoidLoopBoth {
		closing, possible := s.scanGeoRoute(route, bdl.GeoRoute)
		switch {
		case closing:
			if !bdl.Flags.Critical {
				return domain.ClosingLoop, true
			}
			checkValue = domain.ClosingLoop
		case possible && checkValue == domain.NoLoop:
			checkValue = domain.PossibleLoop
		}
	}

	return checkValue, false
}

func (s *Selector) scanGeoRoute(route domain.Route, geoRoute []domain.NodeID) (closing, possible bool) {
	if len(geoRoute) == 0 {
		return false, false
	}
	geo := make(map[domain.NodeID]struct{}, len(geoRoute))
	for _, n := range geoRoute {
		geo[n] = struct{}{}
	}
	if _, ok := geo[route.Neighbor]; ok {
		return true, false
	}
	for _, h := range route.Hops {
		c, ok := s.store.Contact(h)
		if !ok {
			continue
		}
		if _, ok := geo[c.To]; ok {
			possible = true
		}
	}
	return false, possible
}

func queueDelay(applicableBacklog, xmitRate float64) domain.Time {
	if xmitRate <= 0 {
		return 0
	}
	return domain.Time(applicableBacklog / xmitRate)
}

// perHopDelay conservatively estimates queuing delay at every hop after
// the first, using each contact's already-booked volume (initial volume
// minus residual MTV) as a proxy for that hop's backlog.
func (s *Selector) perHopDelay(route domain.Route, priority domain.Priority) domain.Time {
	var total domain.Time
	for _, h := range route.Hops[1:] {
		c, ok := s.store.Contact(h)
		if !ok || c.XmitRate <= 0 {
			continue
		}
		booked := c.InitialVolume() - c.MTV[priority]
		if booked <= 0 {
			continue
		}
		total += domain.Time(booked / c.XmitRate)
	}
	return total
}

// routeVolumeLimit computes the minimum confidence-weighted residual
// volume across the route's hops, then subtracts convergence-layer
// overhead (a percentage of the raw limit, floored at a fixed minimum).
func (s *Selector) routeVolumeLimit(route domain.Route, priority domain.Priority) float64 {
	raw := -1.0
	for _, h := range route.Hops {
		c, ok := s.store.Contact(h)
		if !ok {
			return 0
		}
		residual := c.MTV[priority] * c.Confidence
		if raw < 0 || residual < raw {
			raw = residual
		}
	}
	if raw < 0 {
		return 0
	}
	overhead := raw * s.policy.PercConvergenceLayerOverhead / 100
	if s.policy.MinConvergenceLayerOverhead > overhead {
		overhead = s.policy.MinConvergenceLayerOverhead
	}
	limit := raw - overhead
	if limit < 0 {
		return 0
	}
	return limit
}
