package flight

import (
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/planbridge/table"
)

// DoExchange executes a plan over a seed table supplied by the client.
//
// Protocol:
//   - The first client message carries a CMD descriptor with the encoded
//     plan, together with the seed schema.
//   - The client then sends the seed batches and closes its side.
//   - The server concatenates the batches into one seed, runs the plan and
//     sends back the result as a single record batch.
func (s *Server) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.allocator))
	if errors.Is(err, io.EOF) {
		return status.Error(codes.InvalidArgument, "exchange stream is empty")
	}
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to read seed schema: %v", err)
	}
	defer reader.Release()

	desc := reader.LatestFlightDescriptor()
	if desc == nil || desc.GetType() != flight.DescriptorCMD {
		return status.Error(codes.InvalidArgument, "first exchange message must carry a CMD descriptor")
	}

	s.logger.Debug("DoExchange called",
		"cmd_size", len(desc.GetCmd()),
		"seed_fields", reader.Schema().NumFields(),
		"trace_id", TraceIDFromContext(ctx),
	)

	p, err := s.decodePlan(desc.GetCmd())
	if err != nil {
		return err
	}

	seed, err := table.FromReader(s.allocator, reader)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "[ERR_ARROW_IMPORT] failed to read seed: %v", err)
	}
	defer seed.Release()

	result, err := s.exec.Run(ctx, p, seed)
	if err != nil {
		return toStatus(err)
	}
	defer result.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(result.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	if err := writer.Write(result.Record()); err != nil {
		s.logger.Error("Failed to write result", "error", err)
		return status.Errorf(codes.Internal, "failed to write result: %v", err)
	}

	s.logger.Debug("DoExchange completed",
		"seed_rows", seed.NumRows(),
		"rows", result.NumRows(),
	)
	return nil
}
