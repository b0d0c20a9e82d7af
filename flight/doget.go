package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DoGet executes the plan carried by the ticket and streams the result.
// The result is collected in full before streaming starts, so it arrives
// as a single record batch.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoGet called",
		"ticket_size", len(ticket.GetTicket()),
		"trace_id", TraceIDFromContext(ctx),
	)

	ticketData, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}
	p, err := s.decodePlan(ticketData.Plan)
	if err != nil {
		return err
	}

	result, err := s.exec.Run(ctx, p, nil)
	if err != nil {
		return toStatus(err)
	}
	defer result.Release()

	select {
	case <-ctx.Done():
		return status.Error(codes.Canceled, "request cancelled")
	default:
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(result.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	if err := writer.Write(result.Record()); err != nil {
		s.logger.Error("Failed to write result", "error", err)
		return status.Errorf(codes.Internal, "failed to write result: %v", err)
	}

	s.logger.Debug("DoGet completed",
		"rows", result.NumRows(),
		"columns", result.NumCols(),
	)
	return nil
}
