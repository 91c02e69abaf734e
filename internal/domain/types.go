package domain

import "math"

// NodeID identifies a DTN node by its numeric endpoint identifier.
type NodeID uint64

// Time is seconds since a process-chosen reference epoch, monotone
// non-decreasing across calls (spec.md §6).
type Time int64

// MaxTime is the sentinel used as the half-open window bound of
// Registration contacts, mirroring ION's MAX_POSIX_TIME.
const MaxTime Time = math.MaxInt32

// LightSpeedMph is the one-way light speed in miles per hour, used to
// scale the range-rate safety margin against Policy.MaxSpeedMph.
const LightSpeedMph = 670_616_629.0

// ContactType distinguishes scheduled transmission windows from the
// always-open Registration contact a node has to itself.
type ContactType int

const (
	Scheduled ContactType = iota
	Registration
)

func (t ContactType) String() string {
	if t == Registration {
		return "registration"
	}
	return "scheduled"
}

// Priority is a bundle's service class; it also indexes a contact's MTV.
type Priority int

const (
	Bulk Priority = iota
	Normal
	Expedited
)

const numPriorities = 3

// ContactHandle is a stable arena index for a Contact. The zero value
// means "no contact".
type ContactHandle int32

// RouteHandle is a stable arena index for a Route. The zero value means
// "no route".
type RouteHandle int32

// RangeHandle is a stable arena index for a Range. The zero value means
// "no range".
type RangeHandle int32

// Contact is a directed transmission opportunity between two nodes.
type Contact struct {
	From, To   NodeID
	FromTime   Time
	ToTime     Time
	XmitRate   float64 // bytes/second
	Confidence float64
	Type       ContactType

	// MTV is the residual transmission volume for this contact, one
	// cell per Priority, monotonically decreasing as routes book
	// volume against it.
	MTV [numPriorities]float64
}

// Duration returns ToTime-FromTime, or 0 for a Registration contact.
func (c Contact) Duration() Time {
	if c.Type == Registration {
		return 0
	}
	return c.ToTime - c.FromTime
}

// InitialVolume is xmitRate * (toTime - fromTime), the value each MTV
// cell is seeded with when the contact is added.
func (c Contact) InitialVolume() float64 {
	return c.XmitRate * float64(c.Duration())
}

// Range is the one-way light-time between a node pair over an interval.
type Range struct {
	From, To NodeID
	FromTime Time
	ToTime   Time
	OWLT     Time // seconds
}

// RangeFlag caches whether a Dijkstra search has already resolved the
// applicable range for a contact pair, avoiding repeated store lookups.
type RangeFlag int

const (
	RangeUnqueried RangeFlag = iota
	RangeFound
	RangeAbsent
)

// RoutingWork is transient, per-contact Dijkstra scratch state. It is
// reset between searches and never persisted (spec.md §3).
type RoutingWork struct {
	Predecessor       ContactHandle
	ArrivalTime       Time
	ArrivalConfidence float64
	HopCount          int
	OwltSum           Time
	Visited           bool
	Suppressed        bool

	RangeFlag RangeFlag
	Owlt      Time
}

// Reset restores a RoutingWork to its pre-search state, preserving the
// Suppressed flag across per-neighbor Dijkstra re-runs (spec.md §4.4
// "contacts are never consumed; only suppression flags are flipped").
func (w *RoutingWork) Reset() {
	suppressed := w.Suppressed
	*w = RoutingWork{Suppressed: suppressed}
}

// CheckValue encodes a route's phase-2 verdict and loop-risk class.
// Ordering matters: lower values rank better in the phase-3 comparator.
type CheckValue int

const (
	Unchecked CheckValue = iota
	NoLoop
	PossibleLoop
	ClosingLoop
	FailedNeighbor
)

func (c CheckValue) String() string {
	switch c {
	case NoLoop:
		return "no-loop"
	case PossibleLoop:
		return "possible-loop"
	case ClosingLoop:
		return "closing-loop"
	case FailedNeighbor:
		return "failed-neighbor"
	default:
		return "unchecked"
	}
}

// Route is a candidate or finalized path from the local node to a
// destination, its phase-2 booking state, and its Yen/Lawler spur
// bookkeeping.
type Route struct {
	Neighbor          NodeID
	FromTime          Time
	ToTime            Time
	ArrivalTime       Time
	ArrivalConfidence float64
	OwltSum           Time
	Hops              []ContactHandle
	ComputedAtTime    Time

	// Phase 2
	ETO              Time
	PBAT             Time
	RouteVolumeLimit float64
	CheckValue       CheckValue
	Protected        float64
	Overbooked       float64

	// Yen / Lawler spur search
	RootOfSpur       ContactHandle
	SpursComputed    bool
	CitationToFather RouteHandle
	Children         []RouteHandle
	SelectedFather   RouteHandle
	SelectedChild    RouteHandle
}

// FirstHop returns the handle of the route's first contact, or 0 if the
// route has no hops.
func (r *Route) FirstHop() ContactHandle {
	if len(r.Hops) == 0 {
		return 0
	}
	return r.Hops[0]
}

// HopCount is the number of contacts the route traverses.
func (r *Route) HopCount() int {
	return len(r.Hops)
}

// BundleFlags are the per-bundle behavioral switches spec.md §3 names.
type BundleFlags struct {
	Critical            bool
	Fragmentable        bool
	BackwardPropagation bool
	Probe                bool
}

// SourceHop is one entry of a bundle's carried-in-band MSR route.
type SourceHop struct {
	From, To NodeID
	FromTime Time
}

// Bundle is the normalized view of a bundle the host BP stack forwards
// to the engine.
type Bundle struct {
	Terminus       NodeID
	Sender         NodeID
	Size           float64
	EVC            float64
	ExpirationTime Time
	Priority       Priority
	Ordinal        int
	Flags          BundleFlags
	DlvConfidence  float64

	MSRRoute        []SourceHop
	FailedNeighbors []NodeID
	GeoRoute        []NodeID
}
