package flight

import (
	"context"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// Action types served by DoAction.
const (
	ActionCapabilities  = "capabilities"
	ActionEngineVersion = "engine_version"
	ActionABIVersion    = "abi_version"
	ActionFlightInfo    = "flight_info"
)

var actionTypes = []*flight.ActionType{
	{Type: ActionCapabilities, Description: "Capability manifest as JSON"},
	{Type: ActionEngineVersion, Description: "Execution engine version string"},
	{Type: ActionABIVersion, Description: "Boundary ABI version as a decimal string"},
	{Type: ActionFlightInfo, Description: "Serialized FlightInfo for the plan in the action body"},
}

// DoAction serves the informational actions. Each action yields exactly one
// result message.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
		"trace_id", TraceIDFromContext(ctx),
	)

	body, err := s.actionResult(ctx, action)
	if err != nil {
		return err
	}
	return stream.Send(&flight.Result{Body: body})
}

func (s *Server) actionResult(ctx context.Context, action *flight.Action) ([]byte, error) {
	switch action.GetType() {
	case ActionCapabilities:
		manifest, err := s.exec.Capabilities()
		if err != nil {
			return nil, toStatus(err)
		}
		return []byte(manifest), nil

	case ActionEngineVersion:
		version, err := s.exec.EngineVersion()
		if err != nil {
			return nil, toStatus(err)
		}
		return []byte(version), nil

	case ActionABIVersion:
		return []byte(strconv.FormatUint(uint64(s.exec.ABIVersion()), 10)), nil

	case ActionFlightInfo:
		info, err := s.flightInfo(ctx, &flight.FlightDescriptor{
			Type: flight.DescriptorCMD,
			Cmd:  action.GetBody(),
		})
		if err != nil {
			return nil, err
		}
		data, err := proto.Marshal(info)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to marshal flight info: %v", err)
		}
		return data, nil

	default:
		return nil, status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
}

// ListActions advertises the action types DoAction understands.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return err
		}
	}
	return nil
}
