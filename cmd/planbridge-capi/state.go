package main

import (
	"sync"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/bridgeerr"
)

const envPrefix = "PLANBRIDGE"

var (
	instanceOnce sync.Once
	instanceB    *planbridge.Bridge
	instanceErr  *bridgeerr.Error
)

// instance returns the process-wide Bridge, creating it from the
// environment on first use. A failed start is sticky: every later call
// reports the same error.
func instance() (*planbridge.Bridge, *bridgeerr.Error) {
	instanceOnce.Do(func() {
		instanceB, instanceErr = open(planbridge.LoadConfig)
	})
	return instanceB, instanceErr
}

// open builds the bridge. A panic while starting becomes the sticky start
// error, so the status it produces always has last-error text.
func open(load func(string) (planbridge.Config, error)) (b *planbridge.Bridge, startErr *bridgeerr.Error) {
	defer func() {
		if r := recover(); r != nil {
			b, startErr = nil, bridgeerr.Panic(r)
		}
	}()
	cfg, err := load(envPrefix)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "invalid "+envPrefix+" configuration: "+err.Error())
	}
	b, err := planbridge.New(cfg)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to start bridge: "+err.Error())
	}
	return b, nil
}

// reportPanic records a panic caught outside the envelope in the calling
// thread's slot and returns its status.
func reportPanic(b *planbridge.Bridge, op string, r any) int32 {
	perr := bridgeerr.Panic(r)
	if b == nil {
		return int32(perr.Code)
	}
	return statusOf(b.Guard(op, func() error { return perr }))
}

// statusOf maps an error onto the numeric status returned by every export.
func statusOf(err error) int32 {
	return int32(bridgeerr.CodeOf(err))
}

// lastErrorText is what bridge_last_error reports for the calling thread.
// Before the bridge exists only the start failure can be reported.
func lastErrorText(b *planbridge.Bridge, startErr *bridgeerr.Error) (string, bool) {
	if b == nil {
		if startErr == nil {
			return "", false
		}
		return bridgeerr.Format(startErr), true
	}
	le, ok := b.LastError()
	if !ok {
		return "", false
	}
	return le.String(), true
}
