// Package vcpu holds the per-core state consulted and mutated by the
// exit handlers. One CPU exists per logical processor and is only ever
// touched by the goroutine handling that processor's exits, so none of
// this needs locking.
package vcpu

import "github.com/govmx/vmxdbg/vmx"

type CPU struct {
	ID int

	// Continuation suppression, set by the debugger control path while the
	// guest is held at a step or breakpoint boundary.
	WaitForContinue    bool
	WaitForContinueMtf bool
	BreakOnMtf         bool

	// AdvanceRIP tells the exit trampoline whether to move the guest past
	// the exiting instruction before resuming.
	AdvanceRIP bool

	// Pending holds external interrupts deferred until the interrupt
	// window reopens.
	Pending *PendingQueue

	// Dropped counts interrupts lost to queue overflow.
	Dropped uint64

	windowExiting bool
}

func New(id int) *CPU {
	return &CPU{
		ID:         id,
		AdvanceRIP: true,
		Pending:    NewPendingQueue(DefaultPendingCapacity),
	}
}

// ResetExitState rearms the per-exit defaults. The trampoline calls this
// once per exit before dispatching.
func (c *CPU) ResetExitState() {
	c.AdvanceRIP = true
}

// SuppressRIPIncrement keeps the guest on the exiting instruction so it is
// re-executed, not skipped.
func (c *CPU) SuppressRIPIncrement() {
	c.AdvanceRIP = false
}

// Suppressed reports whether guest continuation is currently held back by
// the debugger.
func (c *CPU) Suppressed() bool {
	return c.WaitForContinue || c.WaitForContinueMtf
}

// InterruptWindowExiting reports the shadow of the interrupt-window
// notification control.
func (c *CPU) InterruptWindowExiting() bool {
	return c.windowExiting
}

// SetInterruptWindowExiting arms or disarms the interrupt-window exit
// request and keeps the shadow flag in sync. All window-control mutation
// goes through here.
func (c *CPU) SetInterruptWindowExiting(h vmx.Handle, enable bool) error {
	ctl, err := h.Read(vmx.CtrlProcBasedControls)
	if err != nil {
		return err
	}

	if enable {
		ctl |= vmx.InterruptWindowExiting
	} else {
		ctl &^= vmx.InterruptWindowExiting
	}

	if err := h.Write(vmx.CtrlProcBasedControls, ctl); err != nil {
		return err
	}

	c.windowExiting = enable

	return nil
}
