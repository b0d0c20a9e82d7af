// Package recovery provides the panic barrier used at every bridge entry
// point and in Flight handlers. A panic never crosses the boundary; it is
// logged with its stack and returned as an UNKNOWN error.
package recovery

import (
	"log/slog"
	"runtime/debug"

	"github.com/hugr-lab/planbridge/bridgeerr"
)

// RecoverToError wraps a function call with panic recovery.
// If the function panics, the panic becomes an UNKNOWN "Panic: ..." error.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "plan_compile", func() error {
//	    return compile(data)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			err = bridgeerr.Panic(r)
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns the zero value and an UNKNOWN error.
//
// Example:
//
//	schema, err := recovery.RecoverToValue(logger, "GetFlightInfo", func() (*arrow.Schema, error) {
//	    return engine.Schema(ctx, frame)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var zero T
			result = zero
			err = bridgeerr.Panic(r)
		}
	}()

	return fn()
}

// Recover wraps a void function with panic recovery.
// Logs the panic but doesn't return an error.
// Use for cleanup operations where errors can't be returned.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
		}
	}()

	fn()
}

func logPanic(logger *slog.Logger, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
