package candidate

import (
	"testing"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

func noBacklog(domain.NodeID, domain.Priority, int) (float64, float64) { return 0, 0 }

func newSingleHopRoute(t *testing.T, store *contactplan.Store, xmitRate, confidence float64, toTime domain.Time) domain.RouteHandle {
	t.Helper()
	h, _, err := store.AddContact(domain.Contact{
		From: 1, To: 2, FromTime: 0, ToTime: toTime,
		XmitRate: xmitRate, Confidence: confidence, Type: domain.Scheduled,
	})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	route := domain.Route{
		Neighbor:          2,
		FromTime:          0,
		ToTime:            toTime,
		ArrivalTime:       10,
		ArrivalConfidence: confidence,
		Hops:              []domain.ContactHandle{h},
	}
	return store.NewRoute(route)
}

func TestSelectRejectsExpiredRoute(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 50)
	sel := New(store, domain.DefaultPolicy(), noBacklog)
	bdl := domain.Bundle{ExpirationTime: domain.MaxTime, Priority: domain.Bulk}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 60, nil)
	if len(got) != 0 {
		t.Fatalf("expected route past its toTime to be rejected, got %v", got)
	}
}

func TestSelectRejectsExcludedNeighbor(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 1000)
	sel := New(store, domain.DefaultPolicy(), noBacklog)
	bdl := domain.Bundle{ExpirationTime: domain.MaxTime, Priority: domain.Bulk}

	excl := map[domain.NodeID]struct{}{2: {}}
	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, excl)
	if len(got) != 0 {
		t.Fatalf("expected excluded-neighbor route to be rejected, got %v", got)
	}
}

func TestSelectRejectsPastDeadline(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 1000)
	sel := New(store, domain.DefaultPolicy(), noBacklog)
	bdl := domain.Bundle{ExpirationTime: 5, Priority: domain.Bulk}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 0 {
		t.Fatalf("expected route whose pbat exceeds the bundle deadline to be rejected, got %v", got)
	}
}

func TestSelectRejectsInsufficientVolumeNonFragmentable(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 1, 1, 1000) // tiny xmitRate -> tiny MTV
	sel := New(store, domain.DefaultPolicy(), noBacklog)
	bdl := domain.Bundle{
		ExpirationTime: domain.MaxTime,
		Priority:       domain.Bulk,
		EVC:            1_000_000,
		Flags:          domain.BundleFlags{Fragmentable: false, Critical: false},
	}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 0 {
		t.Fatalf("expected route with insufficient RVL to be rejected, got %v", got)
	}
}

func TestSelectAcceptsFragmentableDespiteInsufficientVolume(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 1, 1, 1000)
	sel := New(store, domain.DefaultPolicy(), noBacklog)
	bdl := domain.Bundle{
		ExpirationTime: domain.MaxTime,
		Priority:       domain.Bulk,
		EVC:            1_000_000,
		Flags:          domain.BundleFlags{Fragmentable: true},
	}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 1 {
		t.Fatalf("expected fragmentable bundle to bypass the RVL rejection, got %v", got)
	}
}

func TestSelectRejectsBelowConfidenceFloor(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 0.5, 1000)
	policy := domain.DefaultPolicy()
	policy.NeglectConfidence = false
	policy.MinConfidenceImprovement = 0.1
	sel := New(store, policy, noBacklog)
	bdl := domain.Bundle{ExpirationTime: domain.MaxTime, Priority: domain.Bulk, DlvConfidence: 0.8}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 0 {
		t.Fatalf("expected route below dlvConfidence+MinConfidenceImprovement to be rejected, got %v", got)
	}
}

func TestSelectKeepsCriticalBundleDespiteClosingLoop(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 1000)
	policy := domain.DefaultPolicy()
	policy.AvoidLoop = domain.AvoidLoopProactive
	sel := New(store, policy, noBacklog)
	bdl := domain.Bundle{
		ExpirationTime: domain.MaxTime,
		Priority:       domain.Bulk,
		GeoRoute:       []domain.NodeID{2},
		Flags:          domain.BundleFlags{Critical: true},
	}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 1 {
		t.Fatalf("expected critical bundle to keep a closing-loop route, got %v", got)
	}
	route, _ := store.Route(got[0])
	if route.CheckValue != domain.ClosingLoop {
		t.Fatalf("checkValue = %v, want ClosingLoop", route.CheckValue)
	}
}

func TestSelectRejectsClosingLoopForNonCriticalBundle(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 1000)
	policy := domain.DefaultPolicy()
	policy.AvoidLoop = domain.AvoidLoopProactive
	sel := New(store, policy, noBacklog)
	bdl := domain.Bundle{
		ExpirationTime: domain.MaxTime,
		Priority:       domain.Bulk,
		GeoRoute:       []domain.NodeID{2},
	}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 0 {
		t.Fatalf("expected closing-loop route to be rejected for a non-critical bundle, got %v", got)
	}
}

func TestSelectDemotesButKeepsFailedNeighbor(t *testing.T) {
	store := contactplan.New()
	rh := newSingleHopRoute(t, store, 100, 1, 1000)
	policy := domain.DefaultPolicy()
	policy.AvoidLoop = domain.AvoidLoopReactive
	sel := New(store, policy, noBacklog)
	bdl := domain.Bundle{
		ExpirationTime:  domain.MaxTime,
		Priority:        domain.Bulk,
		FailedNeighbors: []domain.NodeID{2},
	}

	got := sel.Select([]domain.RouteHandle{rh}, bdl, 0, nil)
	if len(got) != 1 {
		t.Fatalf("expected reactive loop avoidance to demote, not reject, got %v", got)
	}
	route, _ := store.Route(got[0])
	if route.CheckValue != domain.FailedNeighbor {
		t.Fatalf("checkValue = %v, want FailedNeighbor", route.CheckValue)
	}
}
