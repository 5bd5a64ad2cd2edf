package idt

import (
	"github.com/govmx/vmxdbg/event"
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

// HandleInterruptWindow runs when the guest becomes receptive again. It
// delivers one deferred interrupt per exit; the window exit keeps firing
// until the queue drains, at which point the notification is disarmed.
//
// The suppression flags are deliberately not re-checked here: the
// suppressed-enqueue path never arms window exiting, so a window exit can
// only follow a not-interruptible deferral whose delivery is now due.
func (hd *Handler) HandleInterruptWindow(h vmx.Handle, c *vcpu.CPU) error {
	raw, ok := c.Pending.Pop()
	if !ok {
		// Nothing left in pending state.
		if err := c.SetInterruptWindowExiting(h, false); err != nil {
			return err
		}

		c.SuppressRIPIncrement()

		return nil
	}

	if err := event.Forward(h, vmx.ParseInterruptInfo(raw)); err != nil {
		return err
	}

	c.SuppressRIPIncrement()

	return nil
}

// HandleNMIWindow reports an NMI-window exit. Nothing here ever arms that
// control, so the exit is unexpected; observation only.
func (hd *Handler) HandleNMIWindow(c *vcpu.CPU) {
	hd.logf("core %d: unexpected nmi-window exit", c.ID)
}
