package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/hugr-lab/planbridge/internal/recovery"
)

// UnaryServerInterceptor creates a gRPC unary interceptor that stores the
// request metadata in the context and turns handler panics into UNKNOWN
// statuses.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = EnrichContextMetadata(ctx)
		resp, err := recovery.RecoverToValue(logger, info.FullMethod, func() (any, error) {
			return handler(ctx, req)
		})
		return resp, toStatus(err)
	}
}

// StreamServerInterceptor creates a gRPC stream interceptor with the same
// behavior as UnaryServerInterceptor.
func StreamServerInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		wrappedStream := &wrappedServerStream{
			ServerStream: ss,
			ctx:          EnrichContextMetadata(ss.Context()),
		}
		err := recovery.RecoverToError(logger, info.FullMethod, func() error {
			return handler(srv, wrappedStream)
		})
		return toStatus(err)
	}
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
