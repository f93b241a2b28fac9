package target

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/process"
	"github.com/tracewell/tracewell/pkg/registers"
)

// StepIn advances by one source line, descending into any call made along
// the way, per spec §4.7. If the current PC sits inside an inlined frame
// above the innermost one, stepping in is purely a cursor move: no
// instruction executes, the inline-height cursor just decrements to the
// next inner frame.
func (t *Target) StepIn() (process.StopReason, error) {
	stack, err := t.InlineStackAt(t.GetPC())
	if err != nil {
		return process.StopReason{}, err
	}
	if t.stack.InlineHeight > 0 && t.stack.InlineHeight < len(stack) {
		t.stack.InlineHeight--
		return process.StopReason{State: process.StateStopped, TrapType: process.TrapSingleStep}, nil
	}

	startLine, hasLine := t.lineEntryAt(t.GetPC())

	var reason process.StopReason
	for {
		reason, err = t.singleStepOverSite()
		if err != nil || reason.State != process.StateStopped {
			return reason, err
		}
		e, ok := t.lineEntryAt(t.GetPC())
		if !ok {
			continue
		}
		if e.EndSequence {
			continue
		}
		if !hasLine || e.Line != startLine.Line || e.File != startLine.File {
			break
		}
	}
	t.stack.InlineHeight = 0

	if skipped, err := t.skipPrologue(); err != nil {
		return process.StopReason{}, err
	} else if skipped != nil {
		return *skipped, nil
	}
	return reason, nil
}

// skipPrologue implements the prologue-skip StepIn owes per spec §4.7: if
// the line-change loop above lands exactly on a function's entry point,
// that address is the prologue, not the first line of user code, so
// execution runs on to the line table's next row before reporting a stop.
func (t *Target) skipPrologue() (*process.StopReason, error) {
	pc := t.GetPC()
	obj := t.objectContaining(pc)
	if obj == nil || obj.Dwarf == nil {
		return nil, nil
	}
	fa := pc.ToFile(obj.Elf)
	fn, err := obj.Dwarf.FunctionContainingAddress(fa.Value)
	if err != nil || fn == nil || fn.LowPC != fa.Value {
		return nil, nil
	}
	next, ok := t.nextLineEntryAfter(pc)
	if !ok {
		return nil, nil
	}
	target := (primitives.FileAddr{Elf: obj.Elf, Value: next.Address}).ToVirt(obj.Elf)
	reason, err := t.RunUntilAddress(target)
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// StepOver advances past the current line without descending into any
// call it makes, per spec §4.7. Each iteration decodes the instruction at
// PC and, if it is a call, runs to PC plus its length (the instruction
// following it) rather than single-stepping through the
// callee; a PC inside an inlined frame above the innermost steps to that
// frame's high PC instead, since the "call" was inlined away. The loop
// keeps doing this until the source line actually changes, since a single
// call-skip or single-step can still land mid-line (e.g. `f(g());` or
// several simple statements sharing one line).
func (t *Target) StepOver() (process.StopReason, error) {
	startLine, hasLine := t.lineEntryAt(t.GetPC())

	var reason process.StopReason
	for {
		pc := t.GetPC()
		stack, err := t.InlineStackAt(pc)
		if err != nil {
			return process.StopReason{}, err
		}

		var target primitives.VirtAddr
		hasTarget := false
		if t.stack.InlineHeight > 0 && t.stack.InlineHeight < len(stack) {
			frame := stack[len(stack)-1-t.stack.InlineHeight]
			t.stack.InlineHeight--
			target = primitives.VirtAddr{Value: frame.HighPC}
			hasTarget = true
		} else if inst, ok := t.decodeCallAt(pc); ok {
			target = pc.Add(uint64(inst.Len))
			hasTarget = true
		}

		if hasTarget {
			reason, err = t.RunUntilAddress(target)
			if err != nil || reason.State != process.StateStopped || t.GetPC().Value != target.Value {
				return reason, err
			}
		} else {
			reason, err = t.singleStepOverSite()
			if err != nil || reason.State != process.StateStopped {
				return reason, err
			}
		}

		e, ok := t.lineEntryAt(t.GetPC())
		if !ok {
			continue
		}
		if e.EndSequence {
			continue
		}
		if !hasLine || e.Line != startLine.Line || e.File != startLine.File {
			break
		}
	}
	return reason, nil
}

// decodeCallAt disassembles the instruction at pc and reports it only if
// it's a call, so StepOver can skip past it without single-stepping
// through the callee.
func (t *Target) decodeCallAt(pc primitives.VirtAddr) (x86asm.Inst, bool) {
	code, err := t.Process.ReadMemoryWithoutTraps(pc.Value, 32)
	if err != nil {
		return x86asm.Inst{}, false
	}
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return x86asm.Inst{}, false
	}
	if inst.Op != x86asm.CALL && inst.Op != x86asm.LCALL {
		return x86asm.Inst{}, false
	}
	return inst, true
}

// StepOut runs until the current function (or current inlined frame, if
// any) returns, per spec §4.7: an inlined frame "returns" to its
// enclosing frame's high PC with no machine-level control transfer; a
// concrete function returns to the address saved at [rbp+8] by the
// standard frame-pointer-based prologue.
func (t *Target) StepOut() (process.StopReason, error) {
	pc := t.GetPC()
	stack, err := t.InlineStackAt(pc)
	if err != nil {
		return process.StopReason{}, err
	}
	if t.stack.InlineHeight+1 < len(stack) {
		frame := stack[len(stack)-1-t.stack.InlineHeight]
		t.stack.InlineHeight++
		return t.RunUntilAddress(primitives.VirtAddr{Value: frame.HighPC})
	}

	rbp, err := t.Process.Registers().ReadUint(registers.RBP)
	if err != nil {
		return process.StopReason{}, err
	}
	retBuf, err := t.Process.ReadMemory(rbp+8, 8)
	if err != nil {
		return process.StopReason{}, err
	}
	ret := leUint64(retBuf)
	t.stack.InlineHeight = 0
	return t.RunUntilAddress(primitives.VirtAddr{Value: ret})
}

// singleStepOverSite single-steps one machine instruction, transparently
// stepping over any breakpoint site installed at the current PC.
func (t *Target) singleStepOverSite() (process.StopReason, error) {
	pc := t.GetPC()
	if _, ok := t.Breakpoints.SiteAt(pc); ok {
		if err := t.Process.StepOverBreakpointSite(pc.Value); err != nil {
			return process.StopReason{}, err
		}
		return process.StopReason{State: process.StateStopped, TrapType: process.TrapSingleStep}, nil
	}
	if err := t.Process.SingleStep(); err != nil {
		return process.StopReason{}, err
	}
	return t.Process.WaitOnSignal()
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
