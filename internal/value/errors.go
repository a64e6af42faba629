package value

import (
	"fmt"
	"strings"
)

// ThrownError carries an arbitrary payload out of native code into the
// script's unwind channel.
type ThrownError struct {
	Payload Value
}

func (e *ThrownError) Error() string {
	if e.Payload.IsString() {
		return e.Payload.AsString()
	}
	return Display(e.Payload)
}

// Throw returns an error that scripts catch as v.
func Throw(v Value) error {
	return &ThrownError{Payload: v}
}

// Errorf is a shorthand for throwing a formatted string payload.
func Errorf(format string, args ...any) error {
	return &ThrownError{Payload: Str(fmt.Sprintf(format, args...))}
}

// UnexpectedArgs reports a call whose arguments don't match any accepted form.
func UnexpectedArgs(fn string, expected string, args []Value) error {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = TypeName(a)
	}
	return Errorf("%s: expected %s, found (%s)", fn, expected, strings.Join(types, ", "))
}

// CheckArgs verifies the argument count lies in [min, max]; max < 0 means
// unbounded.
func CheckArgs(fn string, args []Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return Errorf("%s: expected %d arguments, found %d", fn, min, len(args))
		case max < 0:
			return Errorf("%s: expected at least %d arguments, found %d", fn, min, len(args))
		default:
			return Errorf("%s: expected %d to %d arguments, found %d", fn, min, max, len(args))
		}
	}
	return nil
}
