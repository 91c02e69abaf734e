// Package contactplan is the contact-plan store (spec.md §4.2, component
// C2): contacts and ranges held in ordered indexes keyed by (from, to,
// fromTime), with ownership of the cross-references ("citations") that
// computed routes hold against the contacts they traverse. Removing or
// materially revising a contact cascades into every route that cites it.
//
// The store is not internally synchronized: spec.md §3 treats the engine
// as a single-threaded cooperative state machine, and internal/engine
// (C9) is the sole mutex-guarded entry point, following the same
// single-lock-at-the-top shape the teacher's internal/node/node.go uses
// around its routing table.
package contactplan

import (
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
	"cgrengine/internal/orderedindex"
)

// AddResult classifies the outcome of AddContact/AddRange.
type AddResult int

const (
	Added AddResult = iota
	Revised
	Unchanged
)

type contactKey struct {
	From, To domain.NodeID
	FromTime domain.Time
}

func lessContactKey(a, b contactKey) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	return a.FromTime < b.FromTime
}

func keyOf(from, to domain.NodeID, fromTime domain.Time) contactKey {
	return contactKey{From: from, To: to, FromTime: fromTime}
}

type contactSlot struct {
	c     domain.Contact
	alive bool
}

type rangeSlot struct {
	r     domain.Range
	alive bool
}

type routeSlot struct {
	r     domain.Route
	alive bool
}

// Store owns every Contact, Range and Route the engine knows about.
type Store struct {
	lgr logger.Logger

	contacts     []contactSlot
	freeContacts []domain.ContactHandle
	contactIndex *orderedindex.Index[contactKey, domain.ContactHandle]

	ranges     []rangeSlot
	freeRanges []domain.RangeHandle
	rangeIndex *orderedindex.Index[contactKey, domain.RangeHandle]

	routes     []routeSlot
	freeRoutes []domain.RouteHandle

	// citations maps a contact to the set of routes that traverse it.
	citations map[domain.ContactHandle]map[domain.RouteHandle]struct{}

	// registration tracks the one Registration contact per node, which
	// spec.md §4.2 requires to be a singleton.
	registration map[domain.NodeID]domain.ContactHandle

	editSeconds int64
	editMicros  int64

	expiryDirty    bool
	cachedExpiry   domain.Time
	hasCachedRange bool
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.lgr = l }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		lgr:          &logger.NopLogger{},
		contactIndex: orderedindex.New[contactKey, domain.ContactHandle](lessContactKey),
		rangeIndex:   orderedindex.New[contactKey, domain.RangeHandle](lessContactKey),
		citations:    make(map[domain.ContactHandle]map[domain.RouteHandle]struct{}),
		registration: make(map[domain.NodeID]domain.ContactHandle),
		expiryDirty:  true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) bumpEditTime() {
	s.editMicros++
	if s.editMicros >= 1_000_000 {
		s.editMicros = 0
		s.editSeconds++
	}
}

// EditTime returns the store's monotone edit-time pair. The orchestrator
// compares this against the pair it recorded on its previous call and
// drops every destination's routes when they differ; the node registry
// keys its local-neighbor cache on it.
func (s *Store) EditTime() (seconds, micros int64) {
	return s.editSeconds, s.editMicros
}

func handleOf(idx int) int32 { return int32(idx + 1) }
func idxOf[T ~int32](h T) int { return int(h) - 1 }

// AddContact inserts a new scheduled or registration contact, or revises
// the xmitRate/confidence of an existing contact sharing the same
// (from, to, fromTime, toTime) key (spec.md §4.2's addContact/
// reviseContact union). A scheduled contact that overlaps an existing
// one for the same (from, to) pair — including one sharing the same
// fromTime but a different toTime — is rejected rather than silently
// merged; overlap is checked against the immediately adjacent entries
// in the contact index, the same way AddRange checks range overlap. A
// revision that changes xmitRate or toTime invalidates every route
// citing the contact; a confidence-only revision does not.
func (s *Store) AddContact(c domain.Contact) (domain.ContactHandle, AddResult, error) {
	if c.Type == domain.Scheduled {
		if c.From == c.To {
			return 0, 0, errBadArgument("scheduled contact endpoints must differ")
		}
		if c.ToTime <= c.FromTime {
			return 0, 0, errBadArgument("toTime must be after fromTime")
		}
	} else if c.From != c.To {
		return 0, 0, errBadArgument("registration contact must have from == to")
	}
	key := keyOf(c.From, c.To, c.FromTime)
	if h, ok := s.contactIndex.Search(key); ok {
		existing := s.contacts[idxOf(h)].c
		if c.Type == domain.Scheduled && existing.ToTime != c.ToTime {
			return 0, 0, errOverlap("overlapping scheduled contact for node pair")
		}
		return s.reviseContactLocked(h, c)
	}
	if c.Type == domain.Scheduled {
		if prevKey, prevH, ok := s.contactIndex.Prev(key); ok {
			if prevKey.From == c.From && prevKey.To == c.To {
				prev := s.contacts[idxOf(prevH)].c
				if prev.ToTime > c.FromTime {
					return 0, 0, errOverlap("overlapping scheduled contact for node pair")
				}
			}
		}
		if nextKey, _, ok := s.contactIndex.Next(key); ok {
			if nextKey.From == c.From && nextKey.To == c.To && nextKey.FromTime < c.ToTime {
				return 0, 0, errOverlap("overlapping scheduled contact for node pair")
			}
		}
	}
	if c.Type == domain.Registration {
		if _, ok := s.registration[c.From]; ok {
			return 0, 0, errBadArgument("node already has a registration contact")
		}
	}

	var h domain.ContactHandle
	vol := [3]float64{c.InitialVolume(), c.InitialVolume(), c.InitialVolume()}
	c.MTV = vol
	if n := len(s.freeContacts); n > 0 {
		h = s.freeContacts[n-1]
		s.freeContacts = s.freeContacts[:n-1]
		s.contacts[idxOf(h)] = contactSlot{c: c, alive: true}
	} else {
		s.contacts = append(s.contacts, contactSlot{c: c, alive: true})
		h = domain.ContactHandle(handleOf(len(s.contacts) - 1))
	}
	if err := s.contactIndex.Insert(key, h); err != nil {
		return 0, 0, err
	}
	s.citations[h] = make(map[domain.RouteHandle]struct{})
	if c.Type == domain.Registration {
		s.registration[c.From] = h
	}
	s.expiryDirty = true
	s.bumpEditTime()
	s.lgr.Debug("contact added", logger.FContact("contact", c))
	return h, Added, nil
}

func (s *Store) reviseContactLocked(h domain.ContactHandle, updated domain.Contact) (domain.ContactHandle, AddResult, error) {
	slot := &s.contacts[idxOf(h)]
	changed := slot.c.XmitRate != updated.XmitRate || slot.c.Confidence != updated.Confidence || slot.c.ToTime != updated.ToTime
	if !changed {
		return h, Unchanged, nil
	}
	significant := slot.c.XmitRate != updated.XmitRate || slot.c.ToTime != updated.ToTime
	// Rescale residual MTV proportionally rather than resetting to full
	// volume, the same policy ReviseXmitRate uses, so re-adding a contact
	// with the same key and a revised rate doesn't forget already-booked
	// volume the way a flat reset would.
	if slot.c.XmitRate > 0 {
		ratio := updated.XmitRate / slot.c.XmitRate
		for p := range slot.c.MTV {
			slot.c.MTV[p] *= ratio
		}
	} else {
		newVol := updated.InitialVolume()
		for p := range slot.c.MTV {
			slot.c.MTV[p] = newVol
		}
	}
	slot.c.XmitRate = updated.XmitRate
	slot.c.Confidence = updated.Confidence
	slot.c.ToTime = updated.ToTime
	s.expiryDirty = true
	s.bumpEditTime()
	if significant {
		s.invalidateRoutesCiting(h)
	}
	s.lgr.Debug("contact revised", logger.FContact("contact", slot.c))
	return h, Revised, nil
}

// ReviseConfidence updates a contact's confidence in place without
// invalidating the routes that cite it (spec.md §4.2: confidence alone
// does not change feasibility, only the arrival-confidence product phase
// 2 recomputes per call).
func (s *Store) ReviseConfidence(h domain.ContactHandle, confidence float64) error {
	i := idxOf(h)
	if i < 0 || i >= len(s.contacts) || !s.contacts[i].alive {
		return errNotFound("contact not found")
	}
	s.contacts[i].c.Confidence = confidence
	s.bumpEditTime()
	return nil
}

// ReviseXmitRate updates a contact's transmission rate, rescales its
// residual MTV proportionally to the rate change, and invalidates every
// route citing it.
func (s *Store) ReviseXmitRate(h domain.ContactHandle, xmitRate float64) error {
	i := idxOf(h)
	if i < 0 || i >= len(s.contacts) || !s.contacts[i].alive {
		return errNotFound("contact not found")
	}
	slot := &s.contacts[i]
	if slot.c.XmitRate <= 0 {
		slot.c.XmitRate = xmitRate
	} else {
		ratio := xmitRate / slot.c.XmitRate
		for p := range slot.c.MTV {
			slot.c.MTV[p] *= ratio
		}
		slot.c.XmitRate = xmitRate
	}
	s.bumpEditTime()
	s.invalidateRoutesCiting(h)
	return nil
}

// RemoveContact deletes a contact and every route that cites it, and
// scrubs those routes' handles from every other contact's citation set.
func (s *Store) RemoveContact(h domain.ContactHandle) error {
	i := idxOf(h)
	if i < 0 || i >= len(s.contacts) || !s.contacts[i].alive {
		return errNotFound("contact not found")
	}
	c := s.contacts[i].c
	s.invalidateRoutesCiting(h)
	key := keyOf(c.From, c.To, c.FromTime)
	s.contactIndex.Delete(key)
	s.contacts[i] = contactSlot{}
	s.freeContacts = append(s.freeContacts, h)
	delete(s.citations, h)
	if c.Type == domain.Registration {
		delete(s.registration, c.From)
	}
	s.expiryDirty = true
	s.bumpEditTime()
	return nil
}

// Contact returns the live contact stored at h.
func (s *Store) Contact(h domain.ContactHandle) (domain.Contact, bool) {
	i := idxOf(h)
	if i < 0 || i >= len(s.contacts) || !s.contacts[i].alive {
		return domain.Contact{}, false
	}
	return s.contacts[i].c, true
}

// ContactMut returns a pointer into the arena so phase 2 can book volume
// directly against a contact's MTV.
func (s *Store) ContactMut(h domain.ContactHandle) *domain.Contact {
	i := idxOf(h)
	if i < 0 || i >= len(s.contacts) || !s.contacts[i].alive {
		return nil
	}
	return &s.contacts[i].c
}

// RegistrationContact returns the singleton Registration contact for
// node, if any. Phase 1 roots its Dijkstra search at this contact.
func (s *Store) RegistrationContact(node domain.NodeID) (domain.ContactHandle, bool) {
	h, ok := s.registration[node]
	return h, ok
}

// OutboundFrom returns every live contact whose From endpoint is node,
// in arena slot order (not sorted by fromTime), for Dijkstra relaxation
// and local-neighbor-set derivation.
func (s *Store) OutboundFrom(node domain.NodeID) []domain.ContactHandle {
	var out []domain.ContactHandle
	for i, slot := range s.contacts {
		if slot.alive && slot.c.From == node {
			out = append(out, domain.ContactHandle(handleOf(i)))
		}
	}
	return out
}

// RemoveExpired deletes every scheduled contact whose ToTime is at or
// before now, cascading route invalidation as RemoveContact does. It
// returns the number of contacts removed.
func (s *Store) RemoveExpired(now domain.Time) int {
	var toRemove []domain.ContactHandle
	for i, slot := range s.contacts {
		if slot.alive && slot.c.Type == domain.Scheduled && slot.c.ToTime <= now {
			toRemove = append(toRemove, domain.ContactHandle(handleOf(i)))
		}
	}
	for _, h := range toRemove {
		_ = s.RemoveContact(h)
	}
	return len(toRemove)
}

// NextExpiryTime returns the smallest ToTime among live scheduled
// contacts, cached until the next mutating call invalidates it.
// RemoveExpired does not consult it; it scans every contact each call.
func (s *Store) NextExpiryTime() (domain.Time, bool) {
	if !s.expiryDirty {
		return s.cachedExpiry, s.hasCachedRange
	}
	var min domain.Time
	found := false
	for _, slot := range s.contacts {
		if slot.alive && slot.c.Type == domain.Scheduled {
			if !found || slot.c.ToTime < min {
				min = slot.c.ToTime
				found = true
			}
		}
	}
	s.cachedExpiry, s.hasCachedRange, s.expiryDirty = min, found, false
	return min, found
}

// Reset clears every contact, range and route but keeps the store usable.
func (s *Store) Reset() {
	s.contacts = nil
	s.freeContacts = nil
	s.contactIndex = orderedindex.New[contactKey, domain.ContactHandle](lessContactKey)
	s.ranges = nil
	s.freeRanges = nil
	s.rangeIndex = orderedindex.New[contactKey, domain.RangeHandle](lessContactKey)
	s.routes = nil
	s.freeRoutes = nil
	s.citations = make(map[domain.ContactHandle]map[domain.RouteHandle]struct{})
	s.registration = make(map[domain.NodeID]domain.ContactHandle)
	s.expiryDirty = true
	s.bumpEditTime()
}

// Destroy releases the store. It is equivalent to Reset: there is no
// native-heap allocation to release on the Go side (spec.md §9's DESIGN
// NOTES on the arena+handle substitution for the original's citation
// pointers).
func (s *Store) Destroy() { s.Reset() }
