// Package nodereg is the per-destination node registry (spec.md §4.3,
// component C3): a lazily materialized map from destination to routing
// state, plus derivation of the local node's neighbor set from the
// contact plan. Route *ownership* for a destination lives here as plain
// slices of domain.RouteHandle; the routes themselves live in the
// contactplan.Store's arena (DESIGN.md's C2 entry explains why).
package nodereg

import (
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
)

// Node is the routing state CGR maintains for one destination.
type Node struct {
	Destination domain.NodeID

	// KnownRoutes is Yen's "list B": spurs discovered but not yet
	// promoted into candidate selection.
	KnownRoutes []domain.RouteHandle

	// SelectedRoutes is Yen's "list A": routes phase 1 has finalized
	// and phase 2/3 may reuse across calls.
	SelectedRoutes []domain.RouteHandle

	// Citations is the set of local neighbors through which at least
	// one route to this destination has been found.
	Citations map[domain.NodeID]struct{}
}

func newNode(dest domain.NodeID) *Node {
	return &Node{Destination: dest, Citations: make(map[domain.NodeID]struct{})}
}

// Registry is the node/neighbor registry for one local node.
type Registry struct {
	lgr   logger.Logger
	store *contactplan.Store
	local domain.NodeID

	nodes map[domain.NodeID]*Node

	neighbors         map[domain.NodeID]struct{}
	neighborEditSec   int64
	neighborEditMicro int64
	neighborsBuilt    bool
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.lgr = l }
}

// New creates a Registry for localNode backed by store.
func New(store *contactplan.Store, localNode domain.NodeID, opts ...Option) *Registry {
	r := &Registry{
		lgr:   &logger.NopLogger{},
		store: store,
		local: localNode,
		nodes: make(map[domain.NodeID]*Node),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the Node for dest, materializing an empty one on first
// access (spec.md §4.3: "materialized lazily on first CGR call for a
// destination").
func (r *Registry) Get(dest domain.NodeID) *Node {
	n, ok := r.nodes[dest]
	if !ok {
		n = newNode(dest)
		r.nodes[dest] = n
	}
	return n
}

// Reset drops every route known for dest, releasing them from the
// contact-plan store's route arena, and clears the node's citation set.
func (r *Registry) Reset(dest domain.NodeID) {
	n, ok := r.nodes[dest]
	if !ok {
		return
	}
	for _, rh := range n.KnownRoutes {
		r.store.DeleteRoute(rh)
	}
	for _, rh := range n.SelectedRoutes {
		r.store.DeleteRoute(rh)
	}
	n.KnownRoutes = nil
	n.SelectedRoutes = nil
	n.Citations = make(map[domain.NodeID]struct{})
	r.lgr.Debug("node routes reset", logger.F("destination", dest))
}

// ResetAll drops routing state for every destination the registry has
// materialized.
func (r *Registry) ResetAll() {
	for dest := range r.nodes {
		r.Reset(dest)
	}
}

// LocalNeighbors returns the set of nodes for which the local node has
// at least one scheduled contact whose window has not yet closed at now,
// rebuilding the cached set only when the contact plan's edit-time has
// advanced since the last build. The cache key is editTime alone, not
// (editTime, now): a neighbor whose contact lapses is only dropped once
// some later plan edit bumps editTime, since RemoveExpired sweeping that
// contact out is itself such an edit. Until then the set may include a
// neighbor whose window has technically closed.
func (r *Registry) LocalNeighbors(now domain.Time) map[domain.NodeID]struct{} {
	sec, micro := r.store.EditTime()
	if r.neighborsBuilt && sec == r.neighborEditSec && micro == r.neighborEditMicro {
		return r.neighbors
	}
	neighbors := make(map[domain.NodeID]struct{})
	for _, h := range r.store.OutboundFrom(r.local) {
		c, ok := r.store.Contact(h)
		if !ok || c.Type != domain.Scheduled {
			continue
		}
		if c.ToTime > now {
			neighbors[c.To] = struct{}{}
		}
	}
	r.neighbors = neighbors
	r.neighborEditSec, r.neighborEditMicro = sec, micro
	r.neighborsBuilt = true
	return neighbors
}

// RemoveOldNeighbors drops any materialized Node whose destination is no
// longer in the local neighbor set and has no scheduled contact left at
// all (not merely one whose window has momentarily closed), freeing its
// routes the same way Reset does.
func (r *Registry) RemoveOldNeighbors(now domain.Time) {
	current := r.LocalNeighbors(now)
	for dest := range r.nodes {
		if dest == r.local {
			continue
		}
		if _, stillNeighbor := current[dest]; stillNeighbor {
			continue
		}
		if len(r.store.OutboundFrom(dest)) == 0 {
			r.Reset(dest)
			delete(r.nodes, dest)
		}
	}
}

// UnroutedNeighbors returns the local neighbors not yet present in dest's
// citation set, the count phase 1 uses to size its per-neighbor fan-out
// (spec.md §4.4's N = "number of still-unrouted local neighbors").
func (r *Registry) UnroutedNeighbors(dest domain.NodeID, now domain.Time) []domain.NodeID {
	node := r.Get(dest)
	var out []domain.NodeID
	for neighbor := range r.LocalNeighbors(now) {
		if _, routed := node.Citations[neighbor]; !routed {
			out = append(out, neighbor)
		}
	}
	return out
}
