package flight

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/planbridge/bridgeerr"
)

var grpcCodes = map[bridgeerr.Code]codes.Code{
	bridgeerr.Unknown:                codes.Unknown,
	bridgeerr.InvalidArgumentCode:    codes.InvalidArgument,
	bridgeerr.AbiMismatchCode:        codes.FailedPrecondition,
	bridgeerr.PlanVersionUnsupported: codes.FailedPrecondition,
	bridgeerr.PlanDecodeCode:         codes.InvalidArgument,
	bridgeerr.PlanSemanticCode:       codes.InvalidArgument,
	bridgeerr.ArrowImportCode:        codes.InvalidArgument,
	bridgeerr.ArrowExportCode:        codes.Internal,
	bridgeerr.ExecutionCode:          codes.Aborted,
	bridgeerr.UnsupportedCode:        codes.Unimplemented,
	bridgeerr.OomCode:                codes.ResourceExhausted,
}

// toStatus converts a bridge error into a gRPC status error. The message
// keeps the "[ERR_X] message" form so clients can recover the bridge code.
// Errors that already carry a status pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	be := bridgeerr.Classify(err)
	code, ok := grpcCodes[be.Code]
	if !ok {
		code = codes.Unknown
	}
	return status.Error(code, bridgeerr.Format(be))
}

// CodeFromStatus recovers the bridge error code from a status produced by
// the server. Statuses without a bridge prefix yield Unknown.
func CodeFromStatus(err error) bridgeerr.Code {
	if err == nil {
		return bridgeerr.OK
	}
	st, ok := status.FromError(err)
	if !ok {
		var be *bridgeerr.Error
		if errors.As(err, &be) {
			return be.Code
		}
		return bridgeerr.Unknown
	}
	msg := st.Message()
	for _, c := range bridgeerr.Codes() {
		if c == bridgeerr.OK {
			continue
		}
		prefix := "[" + c.String() + "]"
		if len(msg) >= len(prefix) && msg[:len(prefix)] == prefix {
			return c
		}
	}
	return bridgeerr.Unknown
}
