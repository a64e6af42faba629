package vm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/value"
)

// TraceEntry is one frame of a runtime error's call stack.
type TraceEntry struct {
	Function string
	File     string
	Line     int
}

// RuntimeError is an exception that unwound out of a script. Payload is the
// thrown value; runtime failures throw their message as a String.
type RuntimeError struct {
	Payload value.Value
	Message string
	Trace   []TraceEntry
	cause   error
}

func (e *RuntimeError) Error() string {
	if len(e.Trace) > 0 && e.Trace[0].Line > 0 {
		top := e.Trace[0]
		return fmt.Sprintf("%s:%d: %s", formatFilePath(top.File), top.Line, e.Message)
	}
	return e.Message
}

// Unwrap returns the Go error a native function failed with, if any.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// FormatTrace renders the error with its call stack, innermost call first.
func (e *RuntimeError) FormatTrace() string {
	var b strings.Builder
	b.WriteString("runtime error: ")
	b.WriteString(e.Message)
	for _, t := range e.Trace {
		b.WriteString("\n  at ")
		b.WriteString(t.Function)
		if t.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", formatFilePath(t.File), t.Line)
		} else if t.Line > 0 {
			fmt.Fprintf(&b, " (line %d)", t.Line)
		}
	}
	return b.String()
}

// formatFilePath formats a file path for display in stack traces
func formatFilePath(file string) string {
	if file == "" {
		return file
	}
	// Make path relative if it's absolute
	if filepath.IsAbs(file) {
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, file); err == nil && !strings.HasPrefix(rel, "..") {
				file = rel
			}
		}
	}
	return config.TrimSourceExt(file)
}

// isFatal reports errors that scripts can't catch: cancellation and errors
// in the source of an imported module.
func isFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var diag *diagnostics.DiagnosticError
	return errors.As(err, &diag)
}

// toRuntimeError converts an error raised while running into the payload
// carried by the unwind channel.
func (vm *VM) toRuntimeError(err error) *RuntimeError {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr
	}
	var thrown *value.ThrownError
	if errors.As(err, &thrown) {
		return vm.newRuntimeError(thrown.Payload, nil)
	}
	return vm.newRuntimeError(value.Str(err.Error()), err)
}

// newRuntimeError captures the current fiber's call stack.
func (vm *VM) newRuntimeError(payload value.Value, cause error) *RuntimeError {
	msg, derr := vm.Display(payload)
	if derr != nil {
		msg = value.Display(payload)
	}
	return &RuntimeError{
		Payload: payload,
		Message: msg,
		Trace:   vm.stackTrace(),
		cause:   cause,
	}
}

func (vm *VM) stackTrace() []TraceEntry {
	f := vm.cur
	trace := make([]TraceEntry, 0, f.frameCount)
	for i := f.frameCount - 1; i >= 0; i-- {
		frame := &f.frames[i]
		ip := frame.ip - 1
		if ip < 0 {
			ip = 0
		}
		line := 0
		if ip < len(frame.chunk.Lines) {
			line = frame.chunk.Lines[ip]
		}
		trace = append(trace, TraceEntry{
			Function: frame.closure.FunctionName(),
			File:     frame.chunk.File,
			Line:     line,
		})
	}
	return trace
}
