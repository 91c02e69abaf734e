package grpcadapter

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"cgrengine/internal/cgrerr"
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type stubEngine struct {
	lastBundle domain.Bundle
	lastNow    domain.Time
	routes     []domain.Route
	code       int
	addedH     domain.ContactHandle
	failRemove bool
}

func (s *stubEngine) GetBestRoutes(_ context.Context, now domain.Time, bdl domain.Bundle, _ map[domain.NodeID]struct{}) ([]domain.Route, int, error) {
	s.lastNow = now
	s.lastBundle = bdl
	return s.routes, s.code, nil
}

func (s *stubEngine) AddContact(c domain.Contact) (domain.ContactHandle, contactplan.AddResult, error) {
	s.addedH++
	return s.addedH, contactplan.Added, nil
}

func (s *stubEngine) AddRange(domain.Range) (domain.RangeHandle, contactplan.AddResult, error) {
	return 1, contactplan.Added, nil
}

func (s *stubEngine) RemoveContact(domain.ContactHandle) error {
	if s.failRemove {
		return cgrerr.New(cgrerr.NotFound, "no such contact")
	}
	return nil
}

func (s *stubEngine) RemoveRange(domain.RangeHandle) error { return nil }

func (s *stubEngine) ReviseContactConfidence(domain.ContactHandle, float64) error { return nil }

func (s *stubEngine) ReviseContactXmitRate(domain.ContactHandle, float64) error { return nil }

func dialStub(t *testing.T, eng EngineServer) (*Client, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterEngineServer(srv, eng)
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return NewClient(conn), func() {
		conn.Close()
		srv.Stop()
	}
}

func TestClientAddContactRoundTrip(t *testing.T) {
	eng := &stubEngine{}
	c, closeFn := dialStub(t, eng)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	h, res, err := c.AddContact(ctx, domain.Contact{From: 1, To: 2, ToTime: domain.MaxTime, XmitRate: 1000, Confidence: 1})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	if h != 1 {
		t.Fatalf("handle = %d, want 1", h)
	}
	if res != contactplan.Added {
		t.Fatalf("result = %v, want Added", res)
	}
}

func TestClientGetBestRoutesRoundTrip(t *testing.T) {
	eng := &stubEngine{
		routes: []domain.Route{{Neighbor: 7, ArrivalTime: 42, ArrivalConfidence: 0.8, Hops: []domain.ContactHandle{1, 2}}},
		code:   1,
	}
	c, closeFn := dialStub(t, eng)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	routes, code, err := c.GetBestRoutes(ctx, 100, domain.Bundle{Terminus: 9, ExpirationTime: 200}, nil)
	if err != nil {
		t.Fatalf("GetBestRoutes: %v", err)
	}
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if len(routes) != 1 || routes[0].Neighbor != 7 || len(routes[0].Hops) != 2 {
		t.Fatalf("routes = %+v", routes)
	}
	if eng.lastNow != 100 || eng.lastBundle.Terminus != 9 {
		t.Fatalf("engine did not see translated request: now=%v bundle=%+v", eng.lastNow, eng.lastBundle)
	}
}

func TestClientRemoveContactTranslatesNotFound(t *testing.T) {
	eng := &stubEngine{failRemove: true}
	c, closeFn := dialStub(t, eng)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.RemoveContact(ctx, 5)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInternal) {
		t.Fatalf("expected a not-found style error, got %v", err)
	}
}
