package idt

import (
	"github.com/govmx/vmxdbg/event"
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

// HandleExternalInterrupt delivers an external interrupt immediately when
// the guest is receptive, and defers it without loss otherwise.
func (hd *Handler) HandleExternalInterrupt(h vmx.Handle, c *vcpu.CPU, info vmx.InterruptInfo) error {
	switch {
	case c.Suppressed():
		// The debugger holds the guest at a step boundary. Delivering now
		// would land mid-step; dropping instead makes guest devices stop
		// responding. Hold the interrupt until continuation.
		hd.hold(c, info)
		c.SuppressRIPIncrement()

		return nil

	case info.Valid && info.Type == vmx.TypeExternalInterrupt:
		rflags, err := h.Read(vmx.GuestRFlags)
		if err != nil {
			return err
		}

		intrState, err := h.Read(vmx.GuestInterruptibility)
		if err != nil {
			return err
		}

		if vmx.Interruptible(rflags, intrState) {
			if err := event.Forward(h, info); err != nil {
				return err
			}
		} else {
			hd.hold(c, info)

			// Ask for an exit once the window reopens.
			if err := c.SetInterruptWindowExiting(h, true); err != nil {
				return err
			}
		}

		c.SuppressRIPIncrement()

		return nil

	default:
		// Hardware reported an external-interrupt exit whose descriptor is
		// not a valid external interrupt. Should be unreachable under
		// correct exit-reason routing.
		hd.logf("core %d: external-interrupt exit with descriptor %#x (valid=%t type=%s)",
			c.ID, info.Raw(), info.Valid, info.Type)

		return nil
	}
}

func (hd *Handler) hold(c *vcpu.CPU, info vmx.InterruptInfo) {
	if err := c.Pending.Push(info.Raw()); err != nil {
		c.Dropped++
		hd.logf("core %d: vector %d lost: %v", c.ID, info.Vector, err)
	}
}
