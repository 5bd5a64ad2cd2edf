// Package event programs the entry-injection fields so the guest receives
// an interrupt or exception on the next entry, indistinguishable from
// native delivery.
package event

import (
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

// Inject requests delivery of the described event with an explicit error
// code. The error code is written only when the descriptor carries one.
func Inject(h vmx.Handle, info vmx.InterruptInfo, errCode uint32) error {
	if err := h.Write(vmx.CtrlEntryInterruptionInfo, uint64(info.Raw())); err != nil {
		return err
	}

	if info.ErrorCodeValid {
		if err := h.Write(vmx.CtrlEntryExceptionErrorCode, uint64(errCode)); err != nil {
			return err
		}
	}

	return nil
}

// Forward re-delivers an event exactly as the exit reported it, copying
// the exit error code across when the descriptor carries one.
func Forward(h vmx.Handle, info vmx.InterruptInfo) error {
	if err := h.Write(vmx.CtrlEntryInterruptionInfo, uint64(info.Raw())); err != nil {
		return err
	}

	if info.ErrorCodeValid {
		errCode, err := h.Read(vmx.ExitInterruptionErrorCode)
		if err != nil {
			return err
		}

		if err := h.Write(vmx.CtrlEntryExceptionErrorCode, errCode); err != nil {
			return err
		}
	}

	return nil
}

// InjectBreakpoint delivers a synthetic #BP. Software exceptions are
// delivered with an instruction length, which is copied from the exit.
func InjectBreakpoint(h vmx.Handle) error {
	info := vmx.InterruptInfo{
		Vector: vmx.VectorBreakpoint,
		Type:   vmx.TypeSoftwareException,
		Valid:  true,
	}

	if err := Inject(h, info, 0); err != nil {
		return err
	}

	length, err := h.Read(vmx.ExitInstructionLength)
	if err != nil {
		return err
	}

	return h.Write(vmx.CtrlEntryInstructionLength, length)
}

// InjectUndefinedOpcode delivers a #UD and keeps the guest on the
// offending instruction.
func InjectUndefinedOpcode(h vmx.Handle, c *vcpu.CPU) error {
	c.SuppressRIPIncrement()

	info := vmx.InterruptInfo{
		Vector: vmx.VectorUndefinedOpcode,
		Type:   vmx.TypeHardwareException,
		Valid:  true,
	}

	return Inject(h, info, 0)
}

// InjectGeneralProtection delivers a #GP with a zero error code.
func InjectGeneralProtection(h vmx.Handle, c *vcpu.CPU) error {
	c.SuppressRIPIncrement()

	info := vmx.InterruptInfo{
		Vector:         vmx.VectorGeneralProtection,
		Type:           vmx.TypeHardwareException,
		ErrorCodeValid: true,
		Valid:          true,
	}

	return Inject(h, info, 0)
}

// InjectPageFault delivers a #PF for addr. The fault-address register must
// hold the faulting linear address before delivery.
func InjectPageFault(h vmx.Handle, addr uint64, errCode uint32) error {
	if err := h.WriteCR2(addr); err != nil {
		return err
	}

	info := vmx.InterruptInfo{
		Vector:         vmx.VectorPageFault,
		Type:           vmx.TypeHardwareException,
		ErrorCodeValid: true,
		Valid:          true,
	}

	return Inject(h, info, errCode)
}
