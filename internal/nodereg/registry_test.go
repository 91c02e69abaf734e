package nodereg

import (
	"testing"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

func TestGetMaterializesLazily(t *testing.T) {
	store := contactplan.New()
	r := New(store, 1)

	if len(r.nodes) != 0 {
		t.Fatal("registry should start with no materialized nodes")
	}
	n := r.Get(99)
	if n.Destination != 99 {
		t.Fatalf("destination = %v, want 99", n.Destination)
	}
	if len(r.nodes) != 1 {
		t.Fatal("Get should materialize the node")
	}
}

func TestLocalNeighborsTracksFutureContacts(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 1, To: 3, FromTime: 0, ToTime: 5, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})

	r := New(store, 1)
	neighbors := r.LocalNeighbors(10)
	if _, ok := neighbors[2]; !ok {
		t.Fatal("node 2 should be a neighbor: contact window still open")
	}
	if _, ok := neighbors[3]; ok {
		t.Fatal("node 3 should not be a neighbor: contact window already closed at t=10")
	}
}

func TestLocalNeighborsCachesUntilEditTimeAdvances(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	r := New(store, 1)

	first := r.LocalNeighbors(10)
	store.AddContact(domain.Contact{From: 1, To: 4, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	second := r.LocalNeighbors(10)

	if len(first) == len(second) {
		t.Fatal("a contact-plan edit should invalidate the cached neighbor set")
	}
	if _, ok := second[4]; !ok {
		t.Fatal("node 4 should appear after the rebuild")
	}
}

func TestResetReleasesRoutesFromStore(t *testing.T) {
	store := contactplan.New()
	h, _, _ := store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	r := New(store, 1)

	node := r.Get(2)
	rh := store.NewRoute(domain.Route{Neighbor: 2, Hops: []domain.ContactHandle{h}})
	node.SelectedRoutes = append(node.SelectedRoutes, rh)

	r.Reset(2)
	if _, ok := store.Route(rh); ok {
		t.Fatal("route should be freed from the store after Reset")
	}
	if len(node.SelectedRoutes) != 0 {
		t.Fatal("SelectedRoutes should be empty after Reset")
	}
}

func TestUnroutedNeighborsExcludesCitedOnes(t *testing.T) {
	store := contactplan.New()
	store.AddContact(domain.Contact{From: 1, To: 2, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	store.AddContact(domain.Contact{From: 1, To: 3, FromTime: 0, ToTime: 100, XmitRate: 10, Confidence: 1, Type: domain.Scheduled})
	r := New(store, 1)

	node := r.Get(9)
	node.Citations[2] = struct{}{}

	unrouted := r.UnroutedNeighbors(9, 10)
	if len(unrouted) != 1 || unrouted[0] != 3 {
		t.Fatalf("unrouted neighbors = %v, want [3]", unrouted)
	}
}
