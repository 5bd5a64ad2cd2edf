package idt

import (
	"github.com/govmx/vmxdbg/event"
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

// NoFaultAddress tells ReinjectPageFault to take the faulting address from
// the exit qualification instead of an explicit override.
const NoFaultAddress uint64 = 0

// HandleExceptionAndNMI dispatches an exception or NMI exit. Exactly one
// of two things happens: a collaborator consumes the event, or the guest
// re-experiences it on the next entry.
func (hd *Handler) HandleExceptionAndNMI(h vmx.Handle, c *vcpu.CPU, info vmx.InterruptInfo) error {
	switch info.Vector {
	case vmx.VectorBreakpoint:
		// EPT-based breakpoints outrank the debugger callback.
		if hd.EPT != nil && hd.EPT.CheckBreakpoint(c.ID) {
			return nil
		}

		if hd.Debugger != nil && hd.Debugger.HandleBreakpoint(c.ID) {
			return nil
		}

		// Nobody claimed it; the breakpoint belongs to the guest.
		c.SuppressRIPIncrement()

		return event.InjectBreakpoint(h)

	case vmx.VectorUndefinedOpcode:
		if hd.Syscall != nil && hd.Syscall.HandleUndefinedOpcode(c) {
			return nil
		}

		return event.InjectUndefinedOpcode(h, c)

	case vmx.VectorPageFault:
		errCode, err := h.Read(vmx.ExitInterruptionErrorCode)
		if err != nil {
			return err
		}

		// For #PF exits the qualification holds the faulting linear address.
		addr, err := h.Read(vmx.ExitQualification)
		if err != nil {
			return err
		}

		if hd.Debugger != nil && hd.Debugger.HandlePageFault(c.ID, addr, uint32(errCode)) {
			return nil
		}

		return ReinjectPageFault(h, c, info, NoFaultAddress, uint32(errCode))

	case vmx.VectorDebug:
		if hd.Debugger != nil && hd.Debugger.HandleDebugBreakpoint(c.ID) {
			return nil
		}

		return event.Forward(h, info)

	case vmx.VectorNMI:
		if c.WaitForContinue || c.WaitForContinueMtf || c.BreakOnMtf {
			// The NMI arrived inside the suppression window; drop it.
			return nil
		}

		return event.Forward(h, info)

	default:
		return event.Forward(h, info)
	}
}

// ReinjectPageFault re-delivers a page fault with architecturally correct
// fault-address state. addr == NoFaultAddress derives the address from the
// exit qualification. The faulting instruction is re-executed, never
// skipped.
func ReinjectPageFault(h vmx.Handle, c *vcpu.CPU, info vmx.InterruptInfo, addr uint64, errCode uint32) error {
	if addr == NoFaultAddress {
		q, err := h.Read(vmx.ExitQualification)
		if err != nil {
			return err
		}

		addr = q
	}

	if err := h.WriteCR2(addr); err != nil {
		return err
	}

	c.SuppressRIPIncrement()

	return event.Inject(h, info, errCode)
}
