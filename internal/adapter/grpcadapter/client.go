package grpcadapter

import (
	"context"
	"errors"
	"fmt"

	"cgrengine/internal/bundle"
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound         = errors.New("grpcadapter: resource not found")
	ErrUnavailable      = errors.New("grpcadapter: engine unavailable")
	ErrDeadlineExceeded = errors.New("grpcadapter: request timeout exceeded")
	ErrInternal         = errors.New("grpcadapter: internal gRPC error")
)

func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	switch s.Code() {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable:
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return ErrDeadlineExceeded
	case codes.InvalidArgument:
		return fmt.Errorf("grpcadapter: %s", s.Message())
	default:
		return fmt.Errorf("%w: %s", ErrInternal, s.Message())
	}
}

// callOpts forces the JSON content-subtype the codec registers under,
// since no .proto-derived client stub negotiates it for us.
var callOpts = []grpc.CallOption{grpc.CallContentSubtype(codecName)}

// Connect dials addr with the json codec enabled for every RPC made
// through the returned connection.
func Connect(addr string, dialOpts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, dialOpts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcadapter: dial %s: %w", addr, err)
	}
	return conn, nil
}

// Client is a thin RPC client for the Engine service, grounded on the
// engine's own method surface so callers can swap a local *engine.Engine
// for a remote Client with no other code change.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	fullMethod := "/" + ServiceDesc.ServiceName + "/" + method
	if err := c.conn.Invoke(ctx, fullMethod, req, resp, callOpts...); err != nil {
		return normalizeError(err)
	}
	return nil
}

func (c *Client) GetBestRoutes(ctx context.Context, now domain.Time, bdl domain.Bundle, excluded map[domain.NodeID]struct{}) ([]domain.Route, int, error) {
	req := &GetBestRoutesRequest{Now: now}
	for n := range excluded {
		req.ExcludedNeighbors = append(req.ExcludedNeighbors, n)
	}
	req.Bundle = BundleMsg{
		Terminus: bdl.Terminus, Sender: bdl.Sender, Size: bdl.Size, EVC: bdl.EVC,
		Priority: bdl.Priority, Ordinal: bdl.Ordinal, ExpirationTime: bdl.ExpirationTime,
		DlvConfidence: bdl.DlvConfidence,
		Critical:      bdl.Flags.Critical, Fragmentable: bdl.Flags.Fragmentable,
		BackwardProp: bdl.Flags.BackwardPropagation, Probe: bdl.Flags.Probe,
		FailedNeighbors: bdl.FailedNeighbors, MSRRoute: bdl.MSRRoute, GeoRoute: bdl.GeoRoute,
	}
	var resp GetBestRoutesResponse
	if err := c.invoke(ctx, "GetBestRoutes", req, &resp); err != nil {
		return nil, 0, err
	}
	routes := make([]domain.Route, 0, len(resp.Routes))
	for _, m := range resp.Routes {
		routes = append(routes, domain.Route{
			Neighbor:          m.Neighbor,
			ArrivalTime:       m.ArrivalTime,
			ArrivalConfidence: m.ArrivalConfidence,
			Hops:              make([]domain.ContactHandle, m.HopCount),
		})
	}
	return routes, resp.Code, nil
}

func (c *Client) AddContact(ctx context.Context, contact domain.Contact) (domain.ContactHandle, contactplan.AddResult, error) {
	req := &AddContactRequest{Contact: ContactMsg{
		From: contact.From, To: contact.To, FromTime: contact.FromTime, ToTime: contact.ToTime,
		XmitRate: contact.XmitRate, Confidence: contact.Confidence, Type: contact.Type,
	}}
	var resp AddContactResponse
	if err := c.invoke(ctx, "AddContact", req, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Handle, contactplan.AddResult(resp.Result), nil
}

func (c *Client) AddRange(ctx context.Context, rng domain.Range) (domain.RangeHandle, contactplan.AddResult, error) {
	req := &AddRangeRequest{Range: RangeMsg{
		From: rng.From, To: rng.To, FromTime: rng.FromTime, ToTime: rng.ToTime, OWLT: rng.OWLT,
	}}
	var resp AddRangeResponse
	if err := c.invoke(ctx, "AddRange", req, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Handle, contactplan.AddResult(resp.Result), nil
}

func (c *Client) RemoveContact(ctx context.Context, h domain.ContactHandle) error {
	return c.invoke(ctx, "RemoveContact", &RemoveContactRequest{Handle: h}, &Empty{})
}

func (c *Client) RemoveRange(ctx context.Context, h domain.RangeHandle) error {
	return c.invoke(ctx, "RemoveRange", &RemoveRangeRequest{Handle: h}, &Empty{})
}

func (c *Client) ReviseContactConfidence(ctx context.Context, h domain.ContactHandle, confidence float64) error {
	return c.invoke(ctx, "ReviseContactConfidence", &ReviseContactConfidenceRequest{Handle: h, Confidence: confidence}, &Empty{})
}

func (c *Client) ReviseContactXmitRate(ctx context.Context, h domain.ContactHandle, xmitRate float64) error {
	return c.invoke(ctx, "ReviseContactXmitRate", &ReviseContactXmitRateRequest{Handle: h, XmitRate: xmitRate}, &Empty{})
}

// BacklogQueryFunc adapts a remote backlog service into the
// bundle.BacklogQueryFunc phase 2 calls synchronously; ctx carries a
// bounded timeout so one slow host reply cannot stall the orchestrator
// indefinitely.
func BacklogQueryFunc(ctx context.Context, conn *grpc.ClientConn) bundle.BacklogQueryFunc {
	return func(neighbor domain.NodeID, priority domain.Priority, ordinal int) (float64, float64) {
		req := &QueryBacklogRequest{Neighbor: neighbor, Priority: priority, Ordinal: ordinal}
		var resp QueryBacklogResponse
		fullMethod := "/" + BacklogServiceDesc.ServiceName + "/QueryBacklog"
		if err := conn.Invoke(ctx, fullMethod, req, &resp, callOpts...); err != nil {
			return 0, 0
		}
		return resp.ApplicableBacklog, resp.TotalBacklog
	}
}
