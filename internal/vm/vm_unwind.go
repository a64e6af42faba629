package vm

import "github.com/funvibe/kite/internal/value"

// handler is a try region pushed by OP_TRY_START.
type handler struct {
	frame     int // frame depth owning the region
	catchIP   int // -1 without a catch block
	finallyIP int // -1 without a finally block
	sp        int // operand stack height at region entry
	pending   int // pending stack height at region entry
}

type completion uint8

const (
	completionNormal completion = iota
	completionThrow
	completionReturn
)

// pendingAction records why a finally block was entered, so OP_FINALLY_EXIT
// can resume it.
type pendingAction struct {
	kind  completion
	value value.Value
	err   *RuntimeError
	frame int
}

func (vm *VM) pushHandler(catchIP, finallyIP int) {
	f := vm.cur
	h := handler{
		frame:     f.frameCount,
		catchIP:   catchIP,
		finallyIP: finallyIP,
		sp:        f.sp,
		pending:   len(f.pending),
	}
	if catchIP == noTarget {
		h.catchIP = -1
	}
	if finallyIP == noTarget {
		h.finallyIP = -1
	}
	f.handlers = append(f.handlers, h)
}

func (vm *VM) popHandler() {
	f := vm.cur
	if len(f.handlers) > 0 {
		f.handlers = f.handlers[:len(f.handlers)-1]
	}
}

func (vm *VM) pushPending(p pendingAction) {
	vm.cur.pending = append(vm.cur.pending, p)
}

func (vm *VM) discardPending() {
	f := vm.cur
	if len(f.pending) > 0 {
		f.pending = f.pending[:len(f.pending)-1]
	}
}

// throw starts unwinding with err. Only handlers of frames above stopDepth
// are searched: lower frames belong to an outer dispatch loop, which sees
// the error when this one returns it. A nil result means a handler took
// over and execution continues at its catch or finally block.
func (vm *VM) throw(err error, stopDepth int) error {
	if isFatal(err) {
		vm.unwindTo(stopDepth)
		return err
	}
	rtErr := vm.toRuntimeError(err)

	f := vm.cur
	for len(f.handlers) > 0 {
		h := f.handlers[len(f.handlers)-1]
		if h.frame <= stopDepth {
			break
		}
		f.handlers = f.handlers[:len(f.handlers)-1]

		vm.popFramesTo(h.frame)
		f.sp = h.sp
		f.pending = f.pending[:h.pending]

		if h.catchIP >= 0 {
			if h.finallyIP >= 0 {
				// The catch block stays protected by the finally block.
				f.handlers = append(f.handlers, handler{
					frame:     h.frame,
					catchIP:   -1,
					finallyIP: h.finallyIP,
					sp:        h.sp,
					pending:   h.pending,
				})
			}
			vm.push(rtErr.Payload)
			f.frame.ip = h.catchIP
			return nil
		}
		vm.pushPending(pendingAction{kind: completionThrow, err: rtErr, frame: h.frame})
		f.frame.ip = h.finallyIP
		return nil
	}

	vm.unwindTo(stopDepth)
	return rtErr
}

// doReturn returns result from the current frame. Finally blocks of the
// frame's open try regions run first, innermost first. It reports whether
// the frame count reached stopDepth, in which case the value is left in
// the fiber's result instead of on the stack.
func (vm *VM) doReturn(result value.Value, stopDepth int) bool {
	f := vm.cur
	depth := f.frameCount

	for len(f.handlers) > 0 {
		h := f.handlers[len(f.handlers)-1]
		if h.frame < depth {
			break
		}
		f.handlers = f.handlers[:len(f.handlers)-1]
		if h.finallyIP < 0 {
			continue
		}
		f.sp = h.sp
		f.pending = f.pending[:h.pending]
		vm.pushPending(pendingAction{kind: completionReturn, value: result, frame: depth})
		f.frame.ip = h.finallyIP
		return false
	}
	vm.dropPending(depth)

	frame := f.frame
	vm.closeUpvalues(frame.base)
	f.frameCount--
	f.sp = frame.base - 1
	if f.frameCount > 0 {
		f.frame = &f.frames[f.frameCount-1]
	} else {
		f.frame = nil
	}

	if f.frameCount == stopDepth {
		f.result = result
		return true
	}
	vm.push(result)
	return false
}

// dropPending removes pending actions of frames at or above depth.
func (vm *VM) dropPending(depth int) {
	f := vm.cur
	for len(f.pending) > 0 && f.pending[len(f.pending)-1].frame >= depth {
		f.pending = f.pending[:len(f.pending)-1]
	}
}

// popFramesTo discards frames above depth, closing their upvalues.
func (vm *VM) popFramesTo(depth int) {
	f := vm.cur
	for f.frameCount > depth {
		frame := &f.frames[f.frameCount-1]
		vm.closeUpvalues(frame.base)
		f.sp = frame.base - 1
		f.frameCount--
	}
	if f.frameCount > 0 {
		f.frame = &f.frames[f.frameCount-1]
	} else {
		f.frame = nil
	}
}

// unwindTo abandons every frame above stopDepth along with their handlers
// and pending actions.
func (vm *VM) unwindTo(stopDepth int) {
	f := vm.cur
	vm.popFramesTo(stopDepth)
	for len(f.handlers) > 0 && f.handlers[len(f.handlers)-1].frame > stopDepth {
		f.handlers = f.handlers[:len(f.handlers)-1]
	}
	vm.dropPending(stopDepth + 1)
}
