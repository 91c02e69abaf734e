// Package grpcadapter is the host-callback transport adapter SPEC_FULL.md
// §4.13 describes: it lets a GetBestRoutes call, a contact-plan mutation,
// or a backlog query cross a process boundary instead of a bare Go call,
// using a hand-written grpc.ServiceDesc (no .proto stubs ship with this
// module) and a JSON wire codec (codec.go).
package grpcadapter

import (
	"fmt"
	"net"

	"cgrengine/internal/logger"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Server wraps a gRPC server hosting the Engine service and, optionally,
// a host-supplied backlog query service.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	lgr        logger.Logger
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger injects a custom logger into the Server.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Server) { s.lgr = lgr }
}

// New creates a gRPC server bound to lis, registering eng's Engine RPCs
// and, when backlog is non-nil, the backlog-query RPC. Every RPC is
// instrumented via otelgrpc rather than a hand-rolled interceptor, so
// instrumentation stays uniform across the whole service surface.
func New(lis net.Listener, eng EngineServer, backlog BacklogServer, grpcOpts []grpc.ServerOption, opts ...Option) (*Server, error) {
	s := &Server{
		listener: lis,
		lgr:      &logger.NopLogger{},
	}
	for _, o := range opts {
		o(s)
	}

	allOpts := append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, grpcOpts...)
	s.grpcServer = grpc.NewServer(allOpts...)

	RegisterEngineServer(s.grpcServer, eng)
	if backlog != nil {
		RegisterBacklogServer(s.grpcServer, backlog)
	}
	return s, nil
}

// Start runs the gRPC server and blocks until it stops.
func (s *Server) Start() error {
	s.lgr.Info("grpcadapter: serving", logger.F("addr", s.listener.Addr().String()), logger.F("codec", encoding.GetCodec(codecName).Name()))
	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("grpcadapter: server stopped: %w", err)
	}
	return nil
}

// Stop immediately stops the server and closes all active connections.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// GracefulStop waits for in-flight RPCs to complete before shutting down.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}
