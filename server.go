package planbridge

import (
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/planbridge/flight"
)

// ServerConfig configures the Flight transport.
type ServerConfig struct {
	// Bridge executes the plans. Required.
	Bridge *Bridge

	// Allocator backs IPC buffers on the wire. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Address is the public address advertised in FlightEndpoint locations.
	// Empty means endpoints carry no location.
	Address string

	// MaxMessageSize caps gRPC send and receive sizes in bytes. Zero keeps
	// the gRPC default.
	MaxMessageSize int
}

// NewServer registers the plan execution Flight service on grpcServer.
//
// It does NOT start the gRPC server; the caller controls the lifecycle via
// grpcServer.Serve(). Use ServerOptions to build the grpc.Server so handler
// panics are contained:
//
//	config := planbridge.ServerConfig{Bridge: bridge}
//	grpcServer := grpc.NewServer(planbridge.ServerOptions(config)...)
//	if err := planbridge.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateServerConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	flightServer := flight.NewServer(config.Bridge, allocator, logger, config.Address)
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("Plan Flight server registered",
		"address", config.Address,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

func validateServerConfig(config ServerConfig) error {
	if config.Bridge == nil {
		return fmt.Errorf("bridge is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative, got %d", config.MaxMessageSize)
	}
	return nil
}

// ServerOptions returns gRPC server options with the metadata and panic
// recovery interceptors installed.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(flight.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(flight.StreamServerInterceptor(logger)),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
