package event_test

import (
	"testing"

	"github.com/govmx/vmxdbg/event"
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

func TestInject(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	info := vmx.InterruptInfo{
		Vector:         vmx.VectorGeneralProtection,
		Type:           vmx.TypeHardwareException,
		ErrorCodeValid: true,
		Valid:          true,
	}

	if err := event.Inject(h, info, 0x11); err != nil {
		t.Fatalf("Inject: got %v, want nil", err)
	}

	if raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo); uint32(raw) != info.Raw() {
		t.Fatalf("entry info: got %#x, want %#x", raw, info.Raw())
	}

	if ec, _ := h.Read(vmx.CtrlEntryExceptionErrorCode); ec != 0x11 {
		t.Fatalf("entry error code: got %#x, want 0x11", ec)
	}
}

func TestInjectWithoutErrorCode(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	info := vmx.InterruptInfo{Vector: vmx.VectorNMI, Type: vmx.TypeNMI, Valid: true}

	if err := event.Inject(h, info, 0x55); err != nil {
		t.Fatalf("Inject: got %v, want nil", err)
	}

	// No error-code-valid bit, no error-code write.
	if ec, _ := h.Read(vmx.CtrlEntryExceptionErrorCode); ec != 0 {
		t.Fatalf("entry error code: got %#x, want 0", ec)
	}
}

func TestForwardCopiesExitErrorCode(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	if err := h.Write(vmx.ExitInterruptionErrorCode, 0x22); err != nil {
		t.Fatal(err)
	}

	info := vmx.ParseInterruptInfo(0x80000B0D) // #GP with error code

	if err := event.Forward(h, info); err != nil {
		t.Fatalf("Forward: got %v, want nil", err)
	}

	if raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo); uint32(raw) != info.Raw() {
		t.Fatalf("entry info: got %#x, want %#x", raw, info.Raw())
	}

	if ec, _ := h.Read(vmx.CtrlEntryExceptionErrorCode); ec != 0x22 {
		t.Fatalf("entry error code: got %#x, want 0x22", ec)
	}
}

func TestInjectBreakpoint(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	if err := h.Write(vmx.ExitInstructionLength, 1); err != nil {
		t.Fatal(err)
	}

	if err := event.InjectBreakpoint(h); err != nil {
		t.Fatalf("InjectBreakpoint: got %v, want nil", err)
	}

	raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo)
	if uint32(raw) != 0x80000603 {
		t.Fatalf("entry info: got %#x, want 0x80000603", raw)
	}

	// Software exceptions deliver with an instruction length.
	if length, _ := h.Read(vmx.CtrlEntryInstructionLength); length != 1 {
		t.Fatalf("entry instruction length: got %d, want 1", length)
	}
}

func TestInjectUndefinedOpcode(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	c := vcpu.New(0)

	if err := event.InjectUndefinedOpcode(h, c); err != nil {
		t.Fatalf("InjectUndefinedOpcode: got %v, want nil", err)
	}

	if raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo); uint32(raw) != 0x80000306 {
		t.Fatalf("entry info: got %#x, want 0x80000306", raw)
	}

	if c.AdvanceRIP {
		t.Fatal("#UD injection must re-execute the offending instruction")
	}
}

func TestInjectGeneralProtection(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()
	c := vcpu.New(0)

	if err := event.InjectGeneralProtection(h, c); err != nil {
		t.Fatalf("InjectGeneralProtection: got %v, want nil", err)
	}

	if raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo); uint32(raw) != 0x80000B0D {
		t.Fatalf("entry info: got %#x, want 0x80000B0D", raw)
	}

	if ec, _ := h.Read(vmx.CtrlEntryExceptionErrorCode); ec != 0 {
		t.Fatalf("entry error code: got %#x, want 0", ec)
	}

	if c.AdvanceRIP {
		t.Fatal("#GP injection must re-execute the offending instruction")
	}
}

func TestInjectPageFault(t *testing.T) {
	t.Parallel()

	h := vmx.NewMemVMCS()

	if err := event.InjectPageFault(h, 0xFFFF800000001000, 0x2); err != nil {
		t.Fatalf("InjectPageFault: got %v, want nil", err)
	}

	if cr2, _ := h.ReadCR2(); cr2 != 0xFFFF800000001000 {
		t.Fatalf("cr2: got %#x, want 0xFFFF800000001000", cr2)
	}

	if raw, _ := h.Read(vmx.CtrlEntryInterruptionInfo); uint32(raw) != 0x80000B0E {
		t.Fatalf("entry info: got %#x, want 0x80000B0E", raw)
	}

	if ec, _ := h.Read(vmx.CtrlEntryExceptionErrorCode); ec != 0x2 {
		t.Fatalf("entry error code: got %#x, want 0x2", ec)
	}
}
