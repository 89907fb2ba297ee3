package gate

import (
	"context"
	"sync/atomic"
)

// Session is a single caller's handle to a gate, obtained with
// CompletionGate.Open. Sessions hold no gate state of their own beyond
// the caller identity; every Session of a gate observes the same
// pending units and waiter queue.
//
// A Session may be shared between goroutines. Using a Session after
// Close is a programming defect and panics.
type Session struct {
	gate   *CompletionGate
	id     uint64
	caller string
	closed atomic.Bool
}

func (s *Session) Gate() *CompletionGate {
	return s.gate
}

func (s *Session) Caller() string {
	return s.caller
}

// Wait blocks until a unit is available, consumes it and returns nil.
// A banked unit is consumed immediately. If ctx is cancelled while
// blocked, Wait returns an error matching ErrWaitInterrupted and
// ctx.Err(); no unit is consumed and no other waiter is disturbed.
// If a unit had already been handed to this waiter by the time the
// cancellation fired, the unit is consumed and Wait returns nil.
func (s *Session) Wait(ctx context.Context) error {
	s.check("Wait")
	return s.gate.wait(ctx, s.caller)
}

// Signal banks one unit, releasing the earliest blocked waiter if one
// exists. It never blocks and always succeeds, returning the number of
// accepted units (always 1, mirroring a write call).
func (s *Session) Signal() int {
	s.check("Signal")
	return s.gate.signal(s.caller)
}

// Close releases the handle. Closing twice is fine; any other use of a
// closed Session panics.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.gate.release(s)
}

func (s *Session) check(op string) {
	if s.closed.Load() {
		panic("gate: " + op + " on closed session")
	}
}
