package processor

import (
	"errors"
	"fmt"
)

var (
	// ErrCodecInit is returned when the encoder or decoder refuses setup.
	ErrCodecInit = errors.New("codec initialization failed")

	// ErrCodecRelease is returned when the encoder or decoder fails to release.
	ErrCodecRelease = errors.New("codec release failed")
)

// Violation is a broken harness contract: out-of-order completions, a missing
// ledger record, a rejected write and the like. The processor panics with a
// *Violation; the run cannot continue once one is raised.
type Violation struct {
	Op  string
	Msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Op, v.Msg)
}

// AsViolation reports whether a recovered panic value is a *Violation.
func AsViolation(r any) (*Violation, bool) {
	v, ok := r.(*Violation)
	return v, ok
}

func fatalf(op, format string, args ...any) {
	panic(&Violation{Op: op, Msg: fmt.Sprintf(format, args...)})
}

func check(cond bool, op, format string, args ...any) {
	if !cond {
		fatalf(op, format, args...)
	}
}
