// Package idt decides, for every trap the processor routes to the monitor,
// whether the event belongs to the debugger or must be transparently
// re-delivered to the guest.
package idt

import (
	"log"

	"github.com/govmx/vmxdbg/vcpu"
)

// EPTProbe is the extended-page-table breakpoint mechanism. It gets first
// refusal on breakpoint exits, before the debugger callback.
type EPTProbe interface {
	CheckBreakpoint(coreID int) bool
}

// Debugger is offered intercepted events before they are forwarded to the
// guest. A true return means the event was consumed and must not reach
// the guest this exit.
type Debugger interface {
	HandleBreakpoint(coreID int) bool
	HandleDebugBreakpoint(coreID int) bool
	HandlePageFault(coreID int, addr uint64, errCode uint32) bool
}

// SyscallProbe classifies undefined-opcode traps. A true return means the
// trap was an intentional probe and is fully handled.
type SyscallProbe interface {
	HandleUndefinedOpcode(c *vcpu.CPU) bool
}

// Handler dispatches interrupt and exception exits. Nil collaborators
// decline every event.
type Handler struct {
	EPT      EPTProbe
	Debugger Debugger
	Syscall  SyscallProbe

	// Log receives diagnostics for the conditions that should not occur:
	// invariant violations, unexpected window exits, queue overflow.
	Log *log.Logger
}

func (hd *Handler) logf(format string, args ...interface{}) {
	l := hd.Log
	if l == nil {
		l = log.Default()
	}

	l.Printf(format, args...)
}
