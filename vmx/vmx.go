// Package vmx models the slice of the virtual-machine control structure
// that interrupt dispatch and re-injection needs: field identifiers, basic
// exit reasons, and the interruption-information format shared by the exit
// reporting and entry injection fields.
package vmx

// Field identifies a control-structure field. The numeric values are the
// architectural encodings, which are also what the accessor consumes.
type Field uint32

const (
	CtrlProcBasedControls       Field = 0x4002
	CtrlEntryInterruptionInfo   Field = 0x4016
	CtrlEntryExceptionErrorCode Field = 0x4018
	CtrlEntryInstructionLength  Field = 0x401A
	ExitInterruptionInfo        Field = 0x4404
	ExitInterruptionErrorCode   Field = 0x4406
	ExitInstructionLength       Field = 0x440C
	GuestInterruptibility       Field = 0x4824
	ExitQualification           Field = 0x6400
	GuestRIP                    Field = 0x681E
	GuestRFlags                 Field = 0x6820
)

// Fields lists every field this package knows, in encoding order.
func Fields() []Field {
	return []Field{
		CtrlProcBasedControls,
		CtrlEntryInterruptionInfo,
		CtrlEntryExceptionErrorCode,
		CtrlEntryInstructionLength,
		ExitInterruptionInfo,
		ExitInterruptionErrorCode,
		ExitInstructionLength,
		GuestInterruptibility,
		ExitQualification,
		GuestRIP,
		GuestRFlags,
	}
}

func (f Field) String() string {
	switch f {
	case CtrlProcBasedControls:
		return "CtrlProcBasedControls"
	case CtrlEntryInterruptionInfo:
		return "CtrlEntryInterruptionInfo"
	case CtrlEntryExceptionErrorCode:
		return "CtrlEntryExceptionErrorCode"
	case CtrlEntryInstructionLength:
		return "CtrlEntryInstructionLength"
	case ExitInterruptionInfo:
		return "ExitInterruptionInfo"
	case ExitInterruptionErrorCode:
		return "ExitInterruptionErrorCode"
	case ExitInstructionLength:
		return "ExitInstructionLength"
	case GuestInterruptibility:
		return "GuestInterruptibility"
	case ExitQualification:
		return "ExitQualification"
	case GuestRIP:
		return "GuestRIP"
	case GuestRFlags:
		return "GuestRFlags"
	}

	return "Field(unknown)"
}

// ExitReason is a basic vm-exit reason.
type ExitReason uint16

const (
	ExitExceptionNMI      ExitReason = 0
	ExitExternalInterrupt ExitReason = 1
	ExitInterruptWindow   ExitReason = 7
	ExitNMIWindow         ExitReason = 8
)

func (r ExitReason) String() string {
	switch r {
	case ExitExceptionNMI:
		return "exception-or-nmi"
	case ExitExternalInterrupt:
		return "external-interrupt"
	case ExitInterruptWindow:
		return "interrupt-window"
	case ExitNMIWindow:
		return "nmi-window"
	}

	return "unknown"
}

// Processor-based execution control bits consumed here.
const (
	InterruptWindowExiting = 1 << 2
	NMIWindowExiting       = 1 << 22
)

// Guest RFLAGS and interruptibility-state bits.
const (
	RFlagsIF        = 1 << 9
	BlockingBySTI   = 1 << 0
	BlockingByMovSS = 1 << 1
)

// Interruptible reports whether the guest can accept an external interrupt:
// the interrupt-enable flag is set and delivery is not blocked by a
// preceding mov-ss.
func Interruptible(rflags, interruptibility uint64) bool {
	return rflags&RFlagsIF != 0 && interruptibility&BlockingByMovSS == 0
}
