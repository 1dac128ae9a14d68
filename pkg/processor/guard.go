package processor

import "sync/atomic"

const (
	guardIdle int32 = iota
	guardInCall
	guardInCallout
)

// sequenceChecker asserts that the processor is entered by one call at a
// time. While the processor is inside a codec call only the completion
// handlers may enter; every other entry point needs the processor idle.
type sequenceChecker struct {
	state atomic.Int32
}

// enter claims the processor for op and returns the state leave restores.
// nested entry points are the completion handlers.
func (s *sequenceChecker) enter(op string, nested bool) int32 {
	if s.state.CompareAndSwap(guardIdle, guardInCall) {
		return guardIdle
	}
	if nested && s.state.CompareAndSwap(guardInCallout, guardInCall) {
		return guardInCallout
	}
	fatalf(op, "overlapping call into the processor")
	return guardIdle
}

func (s *sequenceChecker) leave(prev int32) {
	s.state.Store(prev)
}

// callOut runs fn as a codec call made by op.
func (s *sequenceChecker) callOut(op string, fn func()) {
	check(s.state.CompareAndSwap(guardInCall, guardInCallout), op, "codec call outside of a processor call")
	fn()
	check(s.state.CompareAndSwap(guardInCallout, guardInCall), op, "call still in progress after returning from codec")
}
