package contactplan

import (
	"testing"

	"cgrengine/internal/domain"
)

func scheduled(from, to domain.NodeID, fromTime, toTime domain.Time, rate float64) domain.Contact {
	return domain.Contact{
		From: from, To: to, FromTime: fromTime, ToTime: toTime,
		XmitRate: rate, Confidence: 1, Type: domain.Scheduled,
	}
}

func TestAddContactRejectsSelfLoop(t *testing.T) {
	s := New()
	_, _, err := s.AddContact(scheduled(1, 1, 0, 10, 100))
	if err == nil {
		t.Fatal("expected error for scheduled contact with equal endpoints")
	}
}

func TestAddContactSeedsMTV(t *testing.T) {
	s := New()
	h, result, err := s.AddContact(scheduled(1, 2, 0, 10, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Added {
		t.Fatalf("expected Added, got %v", result)
	}
	c, ok := s.Contact(h)
	if !ok {
		t.Fatal("contact not found after add")
	}
	for p, v := range c.MTV {
		if v != 1000 {
			t.Errorf("MTV[%d] = %v, want 1000", p, v)
		}
	}
}

func TestAddContactReviseSameKey(t *testing.T) {
	s := New()
	h1, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))
	h2, result, err := s.AddContact(scheduled(1, 2, 0, 10, 200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Revised {
		t.Fatalf("expected Revised, got %v", result)
	}
	if h1 != h2 {
		t.Fatalf("revise should reuse the same handle: %v != %v", h1, h2)
	}
	c, _ := s.Contact(h1)
	if c.XmitRate != 200 {
		t.Errorf("xmitRate = %v, want 200", c.XmitRate)
	}
}

func TestAddContactRejectsOverlap(t *testing.T) {
	s := New()
	if _, _, err := s.AddContact(scheduled(1, 2, 0, 100, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.AddContact(scheduled(1, 2, 50, 150, 100)); err == nil {
		t.Fatal("expected overlap rejection for contact starting mid-window")
	}
	if _, _, err := s.AddContact(scheduled(1, 2, 0, 200, 100)); err == nil {
		t.Fatal("expected overlap rejection for same fromTime but different toTime")
	}
	if _, _, err := s.AddContact(scheduled(1, 2, 100, 200, 100)); err != nil {
		t.Fatalf("adjacent, non-overlapping contact should be accepted: %v", err)
	}
}

func TestRemoveContactCascadesRouteInvalidation(t *testing.T) {
	s := New()
	h, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))
	rh := s.NewRoute(domain.Route{Neighbor: 2, Hops: []domain.ContactHandle{h}})

	if _, ok := s.Route(rh); !ok {
		t.Fatal("route should exist before contact removal")
	}
	if err := s.RemoveContact(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Route(rh); ok {
		t.Fatal("route should have been invalidated when its only hop was removed")
	}
}

func TestReviseXmitRateInvalidatesCitingRoutes(t *testing.T) {
	s := New()
	h, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))
	rh := s.NewRoute(domain.Route{Neighbor: 2, Hops: []domain.ContactHandle{h}})

	if err := s.ReviseXmitRate(h, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Route(rh); ok {
		t.Fatal("route should be invalidated after a significant xmitRate revision")
	}
}

func TestReviseConfidenceDoesNotInvalidateRoutes(t *testing.T) {
	s := New()
	h, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))
	rh := s.NewRoute(domain.Route{Neighbor: 2, Hops: []domain.ContactHandle{h}})

	if err := s.ReviseConfidence(h, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Route(rh); !ok {
		t.Fatal("route should survive a confidence-only revision")
	}
}

func TestRemoveExpiredSweepsPastContacts(t *testing.T) {
	s := New()
	s.AddContact(scheduled(1, 2, 0, 10, 100))
	s.AddContact(scheduled(1, 3, 20, 30, 100))

	n := s.RemoveExpired(15)
	if n != 1 {
		t.Fatalf("expected 1 expired contact removed, got %d", n)
	}
	next, ok := s.NextExpiryTime()
	if !ok || next != 30 {
		t.Fatalf("NextExpiryTime = (%v, %v), want (30, true)", next, ok)
	}
}

func TestAddRangeRejectsOverlap(t *testing.T) {
	s := New()
	if _, _, err := s.AddRange(domain.Range{From: 1, To: 2, FromTime: 0, ToTime: 100, OWLT: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.AddRange(domain.Range{From: 1, To: 2, FromTime: 50, ToTime: 150, OWLT: 1}); err == nil {
		t.Fatal("expected overlap rejection")
	}
	if _, _, err := s.AddRange(domain.Range{From: 1, To: 2, FromTime: 100, ToTime: 200, OWLT: 1}); err != nil {
		t.Fatalf("adjacent, non-overlapping range should be accepted: %v", err)
	}
}

func TestGetApplicableRangeBoundedByWindow(t *testing.T) {
	s := New()
	s.AddRange(domain.Range{From: 1, To: 2, FromTime: 0, ToTime: 100, OWLT: 5})

	owlt, ok := s.GetApplicableRange(1, 2, 50)
	if !ok || owlt != 5 {
		t.Fatalf("in-interval lookup = (%v, %v), want (5, true)", owlt, ok)
	}
	if _, ok := s.GetApplicableRange(1, 2, 500); ok {
		t.Fatal("a lapsed range should not resolve past its toTime")
	}
	if _, ok := s.GetApplicableRange(1, 3, 50); ok {
		t.Fatal("unrelated node pair should not resolve")
	}
}

func TestBookVolumeSplitsProtectedAndOverbooked(t *testing.T) {
	s := New()
	h, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))

	protected, overbooked := s.BookVolume(h, domain.Bulk, 600)
	if protected != 600 || overbooked != 0 {
		t.Fatalf("first booking = (%v, %v), want (600, 0)", protected, overbooked)
	}
	protected, overbooked = s.BookVolume(h, domain.Bulk, 600)
	if protected != 400 || overbooked != 200 {
		t.Fatalf("second booking = (%v, %v), want (400, 200)", protected, overbooked)
	}

	s.UnbookVolume(h, domain.Bulk, 600)
	c, _ := s.Contact(h)
	if c.MTV[domain.Bulk] != 400 {
		t.Fatalf("MTV after unbooking = %v, want 400", c.MTV[domain.Bulk])
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	h, _, _ := s.AddContact(scheduled(1, 2, 0, 10, 100))
	s.NewRoute(domain.Route{Neighbor: 2, Hops: []domain.ContactHandle{h}})
	s.Reset()

	if _, ok := s.Contact(h); ok {
		t.Fatal("contact should not survive Reset")
	}
	if n := len(s.OutboundFrom(1)); n != 0 {
		t.Fatalf("OutboundFrom after reset = %d entries, want 0", n)
	}
}
