package planbridge

import (
	"sync"

	"github.com/hugr-lab/planbridge/bridgeerr"
)

// LastError is the most recent failure recorded for the calling thread.
type LastError struct {
	Code    bridgeerr.Code
	Message string
}

// String renders the error as "[ERR_X] message".
func (e LastError) String() string {
	return "[" + e.Code.String() + "] " + e.Message
}

// errorSlots holds one LastError per OS thread. Goroutines move between
// threads, so Go callers that read LastError must hold
// runtime.LockOSThread across the failing call and the read. Calls arriving
// through the C ABI already run on a fixed thread.
type errorSlots struct {
	mu    sync.Mutex
	slots map[int64]LastError
}

func newErrorSlots() *errorSlots {
	return &errorSlots{slots: make(map[int64]LastError)}
}

func (s *errorSlots) set(err *bridgeerr.Error) {
	id := threadID()
	s.mu.Lock()
	s.slots[id] = LastError{Code: err.Code, Message: err.Message}
	s.mu.Unlock()
}

func (s *errorSlots) get() (LastError, bool) {
	id := threadID()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.slots[id]
	return e, ok
}

func (s *errorSlots) clear() {
	id := threadID()
	s.mu.Lock()
	delete(s.slots, id)
	s.mu.Unlock()
}
