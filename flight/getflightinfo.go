package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo binds a plan and returns its result schema plus a ticket
// that DoGet accepts.
//
// The descriptor must be CMD type with the encoded plan as its command.
// Plans that scan a memory seed cannot be described here because the seed
// only arrives with DoExchange.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	s.logger.Debug("GetFlightInfo called",
		"type", desc.GetType(),
		"cmd_size", len(desc.GetCmd()),
		"trace_id", TraceIDFromContext(ctx),
	)
	return s.flightInfo(ctx, desc)
}

func (s *Server) flightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	if desc.GetType() != flight.DescriptorCMD {
		return nil, status.Error(codes.InvalidArgument, "descriptor must be CMD type")
	}
	p, err := s.decodePlan(desc.GetCmd())
	if err != nil {
		return nil, err
	}

	schema, err := s.exec.ResultSchema(ctx, p, nil)
	if err != nil {
		s.logger.Debug("Failed to bind plan", "error", err)
		return nil, toStatus(err)
	}

	ticket, err := EncodeTicket(desc.GetCmd())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	endpoint := &flight.FlightEndpoint{
		Ticket: &flight.Ticket{Ticket: ticket},
	}
	if s.address != "" {
		endpoint.Location = []*flight.Location{{Uri: s.address}}
	}

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(schema, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{endpoint},
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

// GetSchema returns only the result schema of the plan in desc.
func (s *Server) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	info, err := s.flightInfo(EnrichContextMetadata(ctx), desc)
	if err != nil {
		return nil, err
	}
	return &flight.SchemaResult{Schema: info.GetSchema()}, nil
}
