package mem

import "fmt"

// FatalError is the panic value for invariant violations: an allocator
// swap with memory outstanding, a resize on a non-varsize block, or an
// acquire/release on a dead refcount. These signal caller contract
// violations or corrupted state, so continuing is unsafe; recovering
// from the panic is not supported usage.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string {
	return "fatal memory error: " + e.msg
}

// fatalf reports the violation through the diagnostic sink and aborts.
func (s *System) fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.log.Error().Msg(msg)
	panic(&FatalError{msg: msg})
}
