// Package flight exposes plan execution over Arrow Flight RPC.
//
// A plan travels as its encoded bytes: in a CMD descriptor for GetFlightInfo
// and DoExchange, and inside the ticket for DoGet. DoExchange additionally
// accepts a seed table as the leading record batches of the client stream.
package flight

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/table"
)

// Executor is the subset of the bridge the Flight handlers depend on.
type Executor interface {
	DecodePlan(data []byte) (*plan.Plan, error)
	Run(ctx context.Context, p *plan.Plan, seed *table.Table) (*table.Table, error)
	ResultSchema(ctx context.Context, p *plan.Plan, seed *table.Table) (*arrow.Schema, error)
	Capabilities() (string, error)
	EngineVersion() (string, error)
	ABIVersion() uint32
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	exec      Executor
	allocator memory.Allocator
	logger    *slog.Logger
	address   string // public address for FlightEndpoint locations
}

// NewServer creates a Flight server that executes plans through exec.
// address may be empty, in which case endpoints carry no location and
// clients reuse the connection they asked on.
func NewServer(exec Executor, allocator memory.Allocator, logger *slog.Logger, address string) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		exec:      exec,
		allocator: allocator,
		logger:    logger,
		address:   address,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

// decodePlan turns wire bytes into a plan, mapping failures to gRPC status.
func (s *Server) decodePlan(data []byte) (*plan.Plan, error) {
	p, err := s.exec.DecodePlan(data)
	if err != nil {
		return nil, toStatus(err)
	}
	return p, nil
}
