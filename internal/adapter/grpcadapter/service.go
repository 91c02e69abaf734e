package grpcadapter

import (
	"context"
	stderrors "errors"

	"cgrengine/internal/cgrerr"
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EngineServer is the orchestrator surface this adapter exposes over
// gRPC: every call mirrors an *engine.Engine method one-to-one, so
// RegisterEngineServer can wrap an engine directly without an
// intervening translation type.
type EngineServer interface {
	GetBestRoutes(ctx context.Context, now domain.Time, bdl domain.Bundle, excluded map[domain.NodeID]struct{}) ([]domain.Route, int, error)
	AddContact(domain.Contact) (domain.ContactHandle, contactplan.AddResult, error)
	AddRange(domain.Range) (domain.RangeHandle, contactplan.AddResult, error)
	RemoveContact(domain.ContactHandle) error
	RemoveRange(domain.RangeHandle) error
	ReviseContactConfidence(domain.ContactHandle, float64) error
	ReviseContactXmitRate(domain.ContactHandle, float64) error
}

// BacklogServer answers phase 2's queue-occupancy callback across the
// gRPC boundary, for a host process that runs its BP stack out of
// engine's address space.
type BacklogServer interface {
	QueryBacklog(ctx context.Context, neighbor domain.NodeID, priority domain.Priority, ordinal int) (applicable, total float64)
}

func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var ce *cgrerr.Error
	if stderrors.As(err, &ce) {
		switch ce.Code {
		case cgrerr.BadArgument:
			return status.Error(codes.InvalidArgument, ce.Error())
		case cgrerr.NotFound:
			return status.Error(codes.NotFound, ce.Error())
		default:
			return status.Error(codes.Internal, ce.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

func handleGetBestRoutes(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req GetBestRoutesRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	excluded := make(map[domain.NodeID]struct{}, len(req.ExcludedNeighbors))
	for _, n := range req.ExcludedNeighbors {
		excluded[n] = struct{}{}
	}
	routes, code, err := srv.(EngineServer).GetBestRoutes(ctx, req.Now, req.Bundle.toDomain(), excluded)
	if err != nil {
		return nil, grpcError(err)
	}
	msgs := make([]RouteMsg, 0, len(routes))
	for _, r := range routes {
		msgs = append(msgs, routeToMsg(r))
	}
	return &GetBestRoutesResponse{Routes: msgs, Code: code}, nil
}

func handleAddContact(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req AddContactRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	h, res, err := srv.(EngineServer).AddContact(req.Contact.toDomain())
	if err != nil {
		return nil, grpcError(err)
	}
	return &AddContactResponse{Handle: h, Result: int(res)}, nil
}

func handleAddRange(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req AddRangeRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	h, res, err := srv.(EngineServer).AddRange(req.Range.toDomain())
	if err != nil {
		return nil, grpcError(err)
	}
	return &AddRangeResponse{Handle: h, Result: int(res)}, nil
}

func handleRemoveContact(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req RemoveContactRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if err := srv.(EngineServer).RemoveContact(req.Handle); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func handleRemoveRange(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req RemoveRangeRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if err := srv.(EngineServer).RemoveRange(req.Handle); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func handleReviseContactConfidence(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req ReviseContactConfidenceRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if err := srv.(EngineServer).ReviseContactConfidence(req.Handle, req.Confidence); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func handleReviseContactXmitRate(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req ReviseContactXmitRateRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if err := srv.(EngineServer).ReviseContactXmitRate(req.Handle, req.XmitRate); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func handleQueryBacklog(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req QueryBacklogRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	applicable, total := srv.(BacklogServer).QueryBacklog(ctx, req.Neighbor, req.Priority, req.Ordinal)
	return &QueryBacklogResponse{ApplicableBacklog: applicable, TotalBacklog: total}, nil
}

func unaryHandler(h func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		if interceptor == nil {
			return h(srv, ctx, dec, nil)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		return interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
			return h(srv, ctx, dec, nil)
		})
	}
}

// ServiceDesc is the hand-written substitute for a protoc-generated
// service descriptor: no .proto definitions ship with this module, so
// method routing is wired up directly against the jsonCodec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "cgrengine.v1.Engine",
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBestRoutes", Handler: unaryHandler(handleGetBestRoutes)},
		{MethodName: "AddContact", Handler: unaryHandler(handleAddContact)},
		{MethodName: "AddRange", Handler: unaryHandler(handleAddRange)},
		{MethodName: "RemoveContact", Handler: unaryHandler(handleRemoveContact)},
		{MethodName: "RemoveRange", Handler: unaryHandler(handleRemoveRange)},
		{MethodName: "ReviseContactConfidence", Handler: unaryHandler(handleReviseContactConfidence)},
		{MethodName: "ReviseContactXmitRate", Handler: unaryHandler(handleReviseContactXmitRate)},
	},
	Metadata: "cgrengine/adapter/grpcadapter",
}

// BacklogServiceDesc is registered only by a host process that answers
// QueryBacklog itself (the engine's own process never needs it, since
// WithBacklogQuery already wires that callback in-process).
var BacklogServiceDesc = grpc.ServiceDesc{
	ServiceName: "cgrengine.v1.Backlog",
	HandlerType: (*BacklogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "QueryBacklog", Handler: unaryHandler(handleQueryBacklog)},
	},
	Metadata: "cgrengine/adapter/grpcadapter",
}

// RegisterEngineServer registers srv's Engine RPCs on s.
func RegisterEngineServer(s *grpc.Server, srv EngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RegisterBacklogServer registers srv's backlog-query RPC on s.
func RegisterBacklogServer(s *grpc.Server, srv BacklogServer) {
	s.RegisterService(&BacklogServiceDesc, srv)
}
