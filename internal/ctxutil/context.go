// Package ctxutil builds the per-call context.Context used across the
// gRPC adapter and the engine entry points: a correlation ID for
// log/trace joining, an optional deadline, and a forwarding-hop counter
// for bundles that carry one.
package ctxutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cgrengine/internal/domain"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// unexported keys to avoid collisions
type correlationKey struct{}
type hopsKey struct{}

// GenerateCorrelationID builds a globally unique ID in the form
// <nodeID>-<uuid>, so log lines and trace spans from different engines
// never collide.
func GenerateCorrelationID(nodeID domain.NodeID) string {
	return fmt.Sprintf("%d-%s", nodeID, uuid.NewString())
}

// ContextOption configures the behavior of NewContext.
// Multiple options can be combined.
type ContextOption func(*ctxConfig)

type ctxConfig struct {
	withCorrelation bool
	withHops        bool
	nodeID          domain.NodeID
	timeout         time.Duration
}

// WithCorrelationID enables attaching a fresh correlation ID to the
// created context, derived from the provided nodeID.
func WithCorrelationID(nodeID domain.NodeID) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withCorrelation = true
		cfg.nodeID = nodeID
	}
}

// WithTimeout sets a timeout duration for the created context.
// The caller must defer the cancel function returned by NewContext.
func WithTimeout(d time.Duration) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.timeout = d
	}
}

// WithHops initializes the hop counter at 0 in the context.
func WithHops() ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withHops = true
	}
}

// NewContext creates a new context configured according to the provided options.
//
// Options:
//   - WithCorrelationID(nodeID): attaches a correlation ID to the context
//   - WithTimeout(d): applies a timeout to the context
//
// Returns:
//   - context.Context: the configured context
//   - context.CancelFunc: a cancel function (nil if no timeout was set)
func NewContext(opts ...ContextOption) (context.Context, context.CancelFunc) {
	cfg := &ctxConfig{}
	for _, o := range opts {
		o(cfg)
	}

	// base context
	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		ctx = context.Background()
	}
	if cfg.withCorrelation {
		ctx = context.WithValue(ctx, correlationKey{}, GenerateCorrelationID(cfg.nodeID))
	}
	if cfg.withHops {
		ctx = context.WithValue(ctx, hopsKey{}, 0)
	}

	return ctx, cancel
}

// CorrelationIDFromContext extracts the correlation ID from the context.
// Returns an empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if v := ctx.Value(correlationKey{}); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// EnsureCorrelationID checks if the context already has a non-empty
// correlation ID. If not, it attaches a new one derived from the
// provided nodeID. Returns the updated context (may be the same as input).
func EnsureCorrelationID(ctx context.Context, nodeID domain.NodeID) context.Context {
	if CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, GenerateCorrelationID(nodeID))
}

// HopsFromContext returns the current hop counter from the context.
// If not present, it returns -1 to indicate "not set".
func HopsFromContext(ctx context.Context) int {
	val := ctx.Value(hopsKey{})
	if hops, ok := val.(int); ok {
		return hops
	}
	return -1
}

// IncHops increments the hop counter in the context if present.
// If no hop counter is set, the original context is returned unchanged.
// Special case: if the hop counter is -1, it remains -1.
func IncHops(ctx context.Context) context.Context {
	val := ctx.Value(hopsKey{})
	if hops, ok := val.(int); ok {
		if hops == -1 {
			return ctx
		}
		return context.WithValue(ctx, hopsKey{}, hops+1)
	}
	return ctx
}

// CheckContext verifies whether the provided context has been canceled
// or its deadline has expired.
//
// Behavior:
//   - If ctx.Err() == context.Canceled, it returns a gRPC error with code Canceled.
//   - If ctx.Err() == context.DeadlineExceeded, it returns a gRPC error with code DeadlineExceeded.
//   - Otherwise, it returns nil, meaning the context is still active.
//
// This helper is typically invoked at the beginning of an RPC handler
// to ensure that the request is still valid before performing any work.
func CheckContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled by client")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	default:
		return nil
	}
}
