// Package trace reads recorded vm-exit streams and feeds them to the
// monitor as if hardware were reporting them.
package trace

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/govmx/vmxdbg/vmx"
)

var (
	ErrUnknownReason = errors.New("unknown exit reason")
	ErrUnknownType   = errors.New("unknown interruption type")
	ErrBadCore       = errors.New("exit core out of range")
)

// Exit is one recorded vm-exit. Zero-valued fields read as zero from the
// control structure, matching cleared hardware state.
type Exit struct {
	Core             int     `yaml:"core"`
	Reason           string  `yaml:"reason"`
	Vector           uint8   `yaml:"vector,omitempty"`
	Type             string  `yaml:"type,omitempty"`
	ErrorCode        *uint32 `yaml:"error-code,omitempty"`
	Qualification    uint64  `yaml:"qualification,omitempty"`
	RFlags           uint64  `yaml:"rflags,omitempty"`
	Interruptibility uint64  `yaml:"interruptibility,omitempty"`
	InstructionLen   uint64  `yaml:"instruction-length,omitempty"`
	RIP              uint64  `yaml:"rip,omitempty"`
}

type Trace struct {
	Cores int    `yaml:"cores"`
	Exits []Exit `yaml:"exits"`
}

// Load parses and validates a recorded trace.
func Load(r io.Reader) (*Trace, error) {
	t := &Trace{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(t); err != nil {
		return nil, fmt.Errorf("decoding trace: %w", err)
	}

	if t.Cores <= 0 {
		t.Cores = 1
	}

	for i := range t.Exits {
		e := &t.Exits[i]

		if e.Core < 0 || e.Core >= t.Cores {
			return nil, fmt.Errorf("exit %d: core %d with %d cores: %w", i, e.Core, t.Cores, ErrBadCore)
		}

		if _, err := e.ExitReason(); err != nil {
			return nil, fmt.Errorf("exit %d: %w", i, err)
		}

		if _, err := e.InterruptInfo(); err != nil {
			return nil, fmt.Errorf("exit %d: %w", i, err)
		}
	}

	return t, nil
}

// ExitReason maps the recorded reason name to the hardware value.
func (e *Exit) ExitReason() (vmx.ExitReason, error) {
	switch e.Reason {
	case "exception", "exception-or-nmi":
		return vmx.ExitExceptionNMI, nil
	case "external-interrupt":
		return vmx.ExitExternalInterrupt, nil
	case "interrupt-window":
		return vmx.ExitInterruptWindow, nil
	case "nmi-window":
		return vmx.ExitNMIWindow, nil
	}

	return 0, fmt.Errorf("%q: %w", e.Reason, ErrUnknownReason)
}

// InterruptInfo builds the interruption-information descriptor for the
// exit. Window exits carry none and yield an invalid descriptor.
func (e *Exit) InterruptInfo() (vmx.InterruptInfo, error) {
	reason, err := e.ExitReason()
	if err != nil {
		return vmx.InterruptInfo{}, err
	}

	if reason == vmx.ExitInterruptWindow || reason == vmx.ExitNMIWindow {
		return vmx.InterruptInfo{}, nil
	}

	typ, err := e.interruptionType(reason)
	if err != nil {
		return vmx.InterruptInfo{}, err
	}

	return vmx.InterruptInfo{
		Vector:         vmx.Vector(e.Vector),
		Type:           typ,
		ErrorCodeValid: e.ErrorCode != nil,
		Valid:          true,
	}, nil
}

func (e *Exit) interruptionType(reason vmx.ExitReason) (vmx.InterruptionType, error) {
	switch e.Type {
	case "":
		// Infer from the reason and vector, the common recording case.
		if reason == vmx.ExitExternalInterrupt {
			return vmx.TypeExternalInterrupt, nil
		}

		switch vmx.Vector(e.Vector) {
		case vmx.VectorNMI:
			return vmx.TypeNMI, nil
		case vmx.VectorBreakpoint:
			return vmx.TypeSoftwareException, nil
		default:
			return vmx.TypeHardwareException, nil
		}
	case "external-interrupt":
		return vmx.TypeExternalInterrupt, nil
	case "nmi":
		return vmx.TypeNMI, nil
	case "hardware-exception":
		return vmx.TypeHardwareException, nil
	case "software-interrupt":
		return vmx.TypeSoftwareInterrupt, nil
	case "privileged-software-exception":
		return vmx.TypePrivilegedSoftwareException, nil
	case "software-exception":
		return vmx.TypeSoftwareException, nil
	}

	return 0, fmt.Errorf("%q: %w", e.Type, ErrUnknownType)
}
