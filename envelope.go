package planbridge

import (
	"time"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/internal/observability"
	"github.com/hugr-lab/planbridge/internal/recovery"
)

// call runs fn inside the boundary envelope. The calling thread's slot is
// cleared first and set only when fn fails or panics, so a nil return always
// pairs with an empty slot.
func (b *Bridge) call(op string, fn func() error) error {
	b.errs.clear()
	start := time.Now()

	err := recovery.RecoverToError(b.logger, op, fn)
	elapsed := time.Since(start)
	if err == nil {
		observability.ObserveCall(op, bridgeerr.OK.String(), elapsed)
		return nil
	}

	be := bridgeerr.Classify(err)
	if be.Message == "" {
		be = &bridgeerr.Error{Code: be.Code, Message: "operation " + op + " failed", Err: be.Err}
	}
	b.errs.set(be)
	observability.ObserveCall(op, be.Code.String(), elapsed)
	b.logger.Debug("Bridge call failed",
		"op", op,
		"code", be.Code.String(),
		"error", be.Message,
		"duration", elapsed,
	)
	return be
}

func callValue[T any](b *Bridge, op string, fn func() (T, error)) (T, error) {
	var out T
	err := b.call(op, func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Guard runs fn inside the same envelope as the Bridge methods. Transports
// use it to cover their own marshaling code, so a fault there still ends in
// a status and a last-error entry instead of a crash.
func (b *Bridge) Guard(op string, fn func() error) error {
	return b.call(op, fn)
}
