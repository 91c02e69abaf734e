package contactplan

import "cgrengine/internal/domain"

// NewRoute registers a freshly computed route, citing it against every
// contact it traverses. Route ownership for a destination (knownRoutes,
// selectedRoutes) lives in internal/nodereg as a slice of the returned
// handle; the store only knows the route's hop citations.
func (s *Store) NewRoute(r domain.Route) domain.RouteHandle {
	var h domain.RouteHandle
	if n := len(s.freeRoutes); n > 0 {
		h = s.freeRoutes[n-1]
		s.freeRoutes = s.freeRoutes[:n-1]
		s.routes[idxOf(h)] = routeSlot{r: r, alive: true}
	} else {
		s.routes = append(s.routes, routeSlot{r: r, alive: true})
		h = domain.RouteHandle(handleOf(len(s.routes) - 1))
	}
	for _, ch := range r.Hops {
		set, ok := s.citations[ch]
		if !ok {
			set = make(map[domain.RouteHandle]struct{})
			s.citations[ch] = set
		}
		set[h] = struct{}{}
	}
	return h
}

// Route returns a copy of the route stored at h.
func (s *Store) Route(h domain.RouteHandle) (domain.Route, bool) {
	i := idxOf(h)
	if i < 0 || i >= len(s.routes) || !s.routes[i].alive {
		return domain.Route{}, false
	}
	return s.routes[i].r, true
}

// RouteMut returns a pointer into the arena so phase 2/3 can update a
// route's booking state in place.
func (s *Store) RouteMut(h domain.RouteHandle) *domain.Route {
	i := idxOf(h)
	if i < 0 || i >= len(s.routes) || !s.routes[i].alive {
		return nil
	}
	return &s.routes[i].r
}

// DeleteRoute removes a route and its citations against every hop it
// traverses.
func (s *Store) DeleteRoute(h domain.RouteHandle) {
	i := idxOf(h)
	if i < 0 || i >= len(s.routes) || !s.routes[i].alive {
		return
	}
	r := s.routes[i].r
	for _, ch := range r.Hops {
		if set, ok := s.citations[ch]; ok {
			delete(set, h)
		}
	}
	s.routes[i] = routeSlot{}
	s.freeRoutes = append(s.freeRoutes, h)
}

// invalidateRoutesCiting deletes every route citing contact h. Called
// whenever a contact is removed or materially revised (xmitRate, toTime).
func (s *Store) invalidateRoutesCiting(h domain.ContactHandle) {
	set, ok := s.citations[h]
	if !ok || len(set) == 0 {
		return
	}
	victims := make([]domain.RouteHandle, 0, len(set))
	for rh := range set {
		victims = append(victims, rh)
	}
	for _, rh := range victims {
		s.DeleteRoute(rh)
	}
}

// CitingRoutes returns the routes currently citing contact h.
func (s *Store) CitingRoutes(h domain.ContactHandle) []domain.RouteHandle {
	set, ok := s.citations[h]
	if !ok {
		return nil
	}
	out := make([]domain.RouteHandle, 0, len(set))
	for rh := range set {
		out = append(out, rh)
	}
	return out
}

// BookVolume subtracts amount from contact h's MTV cell for priority,
// returning the portion covered by protected (non-negative) residual
// volume and the portion that overbooks the contact (drives MTV
// negative), matching spec.md §4.6's protected/overbooked accounting.
func (s *Store) BookVolume(h domain.ContactHandle, priority domain.Priority, amount float64) (protected, overbooked float64) {
	c := s.ContactMut(h)
	if c == nil {
		return 0, amount
	}
	residual := c.MTV[priority]
	if residual >= amount {
		protected = amount
	} else if residual > 0 {
		protected = residual
		overbooked = amount - residual
	} else {
		overbooked = amount
	}
	c.MTV[priority] -= amount
	return protected, overbooked
}

// UnbookVolume reverses a prior BookVolume call, used to roll back a
// booking journal when a candidate route is ultimately rejected.
func (s *Store) UnbookVolume(h domain.ContactHandle, priority domain.Priority, amount float64) {
	c := s.ContactMut(h)
	if c == nil {
		return
	}
	c.MTV[priority] += amount
}
