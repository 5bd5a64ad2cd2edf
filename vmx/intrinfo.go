package vmx

// InterruptionType is the event type carried in the interruption-information
// format. The values are the hardware encoding.
type InterruptionType uint8

const (
	TypeExternalInterrupt           InterruptionType = 0
	TypeReserved                    InterruptionType = 1
	TypeNMI                         InterruptionType = 2
	TypeHardwareException           InterruptionType = 3
	TypeSoftwareInterrupt           InterruptionType = 4
	TypePrivilegedSoftwareException InterruptionType = 5
	TypeSoftwareException           InterruptionType = 6
	TypeOtherEvent                  InterruptionType = 7
)

func (t InterruptionType) String() string {
	switch t {
	case TypeExternalInterrupt:
		return "external-interrupt"
	case TypeNMI:
		return "nmi"
	case TypeHardwareException:
		return "hardware-exception"
	case TypeSoftwareInterrupt:
		return "software-interrupt"
	case TypePrivilegedSoftwareException:
		return "privileged-software-exception"
	case TypeSoftwareException:
		return "software-exception"
	case TypeOtherEvent:
		return "other"
	}

	return "reserved"
}

// Vector is an interrupt or exception vector.
type Vector uint8

// Vectors this core dispatches on. Anything else takes the generic
// forwarding path.
const (
	VectorDebug             Vector = 1
	VectorNMI               Vector = 2
	VectorBreakpoint        Vector = 3
	VectorUndefinedOpcode   Vector = 6
	VectorGeneralProtection Vector = 13
	VectorPageFault         Vector = 14
)

const (
	infoVectorMask    = 0xFF
	infoTypeShift     = 8
	infoTypeMask      = 0x7
	infoErrCodeValid  = 1 << 11
	infoNMIUnblocking = 1 << 12
	infoValid         = 1 << 31
)

// InterruptInfo is the parsed interruption-information field.
type InterruptInfo struct {
	Vector         Vector
	Type           InterruptionType
	ErrorCodeValid bool
	NMIUnblocking  bool
	Valid          bool
}

// ParseInterruptInfo decodes the raw 32-bit interruption information as
// reported on vm-exit.
func ParseInterruptInfo(raw uint32) InterruptInfo {
	return InterruptInfo{
		Vector:         Vector(raw & infoVectorMask),
		Type:           InterruptionType((raw >> infoTypeShift) & infoTypeMask),
		ErrorCodeValid: raw&infoErrCodeValid != 0,
		NMIUnblocking:  raw&infoNMIUnblocking != 0,
		Valid:          raw&infoValid != 0,
	}
}

// Raw encodes the descriptor back into the 32-bit format consumed by the
// entry-injection field.
func (i InterruptInfo) Raw() uint32 {
	raw := uint32(i.Vector) | uint32(i.Type&infoTypeMask)<<infoTypeShift

	if i.ErrorCodeValid {
		raw |= infoErrCodeValid
	}

	if i.NMIUnblocking {
		raw |= infoNMIUnblocking
	}

	if i.Valid {
		raw |= infoValid
	}

	return raw
}
