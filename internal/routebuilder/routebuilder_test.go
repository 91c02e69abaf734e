package routebuilder

import (
	"testing"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

func setupTwoHop(t *testing.T) (*contactplan.Store, domain.ContactHandle, domain.ContactHandle) {
	t.Helper()
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 1, FromTime: 0, ToTime: domain.MaxTime, Type: domain.Registration})
	store.AddRange(domain.Range{From: 1, To: 2, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 2, To: 3, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	h1, _, _ := store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	h2, _, _ := store.AddContact(domain.Contact{From: 2, To: 3, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	return store, h1, h2
}

func TestBuildRoutesFindsTwoHopPath(t *testing.T) {
	store, h1, h2 := setupTwoHop(t)
	b := New(store, domain.DefaultPolicy())

	handles, err := b.BuildRoutes(1, 3, 0, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("got %d routes, want 1", len(handles))
	}
	route, _ := store.Route(handles[0])
	if len(route.Hops) != 2 || route.Hops[0] != h1 || route.Hops[1] != h2 {
		t.Fatalf("unexpected hop chain: %v", route.Hops)
	}
	if route.Neighbor != 2 {
		t.Fatalf("neighbor = %v, want 2", route.Neighbor)
	}
}

func TestBuildRoutesReturnsNoRouteWhenUnreachable(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 1, FromTime: 0, ToTime: domain.MaxTime, Type: domain.Registration})
	b := New(store, domain.DefaultPolicy())

	_, err := b.BuildRoutes(1, 99, 0, 1, nil)
	if err == nil {
		t.Fatal("expected error when destination is unreachable")
	}
}

func TestBuildRoutesPerNeighborSuppressionFindsDistinctNeighbors(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 1, FromTime: 0, ToTime: domain.MaxTime, Type: domain.Registration})
	store.AddRange(domain.Range{From: 1, To: 2, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 1, To: 3, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 2, To: 9, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 3, To: 9, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 1, To: 3, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 2, To: 9, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 3, To: 9, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})

	b := New(store, domain.DefaultPolicy())
	handles, err := b.BuildRoutes(1, 9, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("got %d routes, want 2 (one per first-hop neighbor)", len(handles))
	}
	neighbors := make(map[domain.NodeID]bool)
	for _, h := range handles {
		r, _ := store.Route(h)
		neighbors[r.Neighbor] = true
	}
	if !neighbors[2] || !neighbors[3] {
		t.Fatalf("expected routes via both neighbor 2 and neighbor 3, got %v", neighbors)
	}
}

func TestBuildRoutesExcludesGivenNeighbors(t *testing.T) {
	store, _, _ := setupTwoHop(t)
	b := New(store, domain.DefaultPolicy())

	excl := map[domain.NodeID]struct{}{2: {}}
	_, err := b.BuildRoutes(1, 3, 0, 1, excl)
	if err == nil {
		t.Fatal("expected no route once the only neighbor is excluded")
	}
}

func TestComputeSpursDeviatesAtSharedPrefix(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 1, FromTime: 0, ToTime: domain.MaxTime, Type: domain.Registration})
	store.AddRange(domain.Range{From: 1, To: 2, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 2, To: 3, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 2, To: 4, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddRange(domain.Range{From: 4, To: 3, FromTime: 0, ToTime: domain.MaxTime, OWLT: 1})
	store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 2, To: 3, FromTime: 0, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 2, To: 4, FromTime: 1, ToTime: 1000, XmitRate: 100, Confidence: 0.9, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 4, To: 3, FromTime: 2, ToTime: 1000, XmitRate: 100, Confidence: 1, Type: domain.Scheduled})

	b := New(store, domain.DefaultPolicy())
	handles, err := b.BuildRoutes(1, 3, 0, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error building parent route: %v", err)
	}
	parent, _ := store.Route(handles[0])

	children, err := b.ComputeSpurs(1, 3, 0, handles[0], []domain.Route{parent})
	if err != nil {
		t.Fatalf("unexpected error computing spurs: %v", err)
	}
	if len(children) == 0 {
		t.Fatal("expected at least one spur route deviating through node 4")
	}
	foundDeviation := false
	for _, ch := range children {
		r, _ := store.Route(ch)
		for _, h := range r.Hops {
			if c, ok := store.Contact(h); ok && c.To == 4 {
				foundDeviation = true
			}
		}
	}
	if !foundDeviation {
		t.Fatal("expected a spur route traversing node 4")
	}
}
