package chooser

import (
	"testing"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

func addRoute(t *testing.T, store *contactplan.Store, neighbor domain.NodeID, pbat domain.Time, hops int, checkValue domain.CheckValue) domain.RouteHandle {
	t.Helper()
	chain := make([]domain.ContactHandle, hops)
	for i := range chain {
		chain[i] = domain.ContactHandle(i + 1)
	}
	return store.NewRoute(domain.Route{
		Neighbor:          neighbor,
		PBAT:              pbat,
		ArrivalConfidence: 1,
		Hops:              chain,
		CheckValue:        checkValue,
	})
}

func TestChooseReturnsSingleBestForOrdinaryBundle(t *testing.T) {
	store := contactplan.New()
	best := addRoute(t, store, 2, 100, 2, domain.NoLoop)
	worse := addRoute(t, store, 3, 200, 3, domain.NoLoop)

	c := New(store, domain.DefaultPolicy())
	bdl := domain.Bundle{Priority: domain.Bulk}
	got := c.Choose([]domain.RouteHandle{worse, best}, bdl)

	if len(got) != 1 || got[0] != best {
		t.Fatalf("got %v, want single best route %v", got, best)
	}
}

func TestChooseReturnsAllCandidatesForCriticalBundle(t *testing.T) {
	store := contactplan.New()
	a := addRoute(t, store, 2, 100, 2, domain.NoLoop)
	b := addRoute(t, store, 3, 200, 3, domain.NoLoop)

	c := New(store, domain.DefaultPolicy())
	bdl := domain.Bundle{Priority: domain.Bulk, Flags: domain.BundleFlags{Critical: true}}
	got := c.Choose([]domain.RouteHandle{a, b}, bdl)

	if len(got) != 2 {
		t.Fatalf("got %d routes, want 2 for a critical bundle", len(got))
	}
}

func TestChooseReturnsBestPerNeighborForExpeditedBundle(t *testing.T) {
	store := contactplan.New()
	bestTo2 := addRoute(t, store, 2, 100, 2, domain.NoLoop)
	worseTo2 := addRoute(t, store, 2, 500, 2, domain.NoLoop)
	onlyTo3 := addRoute(t, store, 3, 50, 1, domain.NoLoop)

	c := New(store, domain.DefaultPolicy())
	bdl := domain.Bundle{Priority: domain.Expedited}
	got := c.Choose([]domain.RouteHandle{bestTo2, worseTo2, onlyTo3}, bdl)

	if len(got) != 2 {
		t.Fatalf("got %d routes, want one per unique neighbor (2)", len(got))
	}
	want := map[domain.RouteHandle]bool{bestTo2: true, onlyTo3: true}
	for _, h := range got {
		if !want[h] {
			t.Fatalf("unexpected route handle %v in forwarding set", h)
		}
	}
}

func TestLessRanksLowerCheckValueFirst(t *testing.T) {
	policy := domain.DefaultPolicy()
	a := domain.Route{CheckValue: domain.NoLoop, PBAT: 1000}
	b := domain.Route{CheckValue: domain.PossibleLoop, PBAT: 1}
	if !less(a, b, policy) {
		t.Fatal("expected NoLoop to outrank PossibleLoop regardless of pbat")
	}
}

func TestLessFallsBackToNeighborNumber(t *testing.T) {
	policy := domain.DefaultPolicy()
	a := domain.Route{Neighbor: 2, ArrivalConfidence: 1}
	b := domain.Route{Neighbor: 5, ArrivalConfidence: 1}
	if !less(a, b, policy) {
		t.Fatal("expected the lower neighbor id to win a fully tied comparison")
	}
}
