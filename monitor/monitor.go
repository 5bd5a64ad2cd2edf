// Package monitor is the outer exit trampoline: it routes each decoded
// vm-exit to the dispatch core and runs one handler loop per logical core.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/govmx/vmxdbg/idt"
	"github.com/govmx/vmxdbg/vcpu"
	"github.com/govmx/vmxdbg/vmx"
)

// ExitSource yields exit reasons for one core. The source must have loaded
// the exit's fields into that core's control structure before Next
// returns, the way hardware has by the time the trampoline runs. Next
// returns io.EOF when the stream is drained.
type ExitSource interface {
	Next(ctx context.Context) (vmx.ExitReason, error)
}

type Monitor struct {
	Handler *idt.Handler

	cpus    []*vcpu.CPU
	handles []vmx.Handle
}

// New builds a monitor for nCores cores; newHandle supplies each core's
// control-structure accessor.
func New(nCores int, newHandle func(core int) vmx.Handle, hd *idt.Handler) *Monitor {
	m := &Monitor{
		Handler: hd,
		cpus:    make([]*vcpu.CPU, nCores),
		handles: make([]vmx.Handle, nCores),
	}

	for i := 0; i < nCores; i++ {
		m.cpus[i] = vcpu.New(i)
		m.handles[i] = newHandle(i)
	}

	return m
}

func (m *Monitor) CPU(core int) *vcpu.CPU {
	return m.cpus[core]
}

func (m *Monitor) Handle(core int) vmx.Handle {
	return m.handles[core]
}

// DispatchExit handles one exit on the given core. Exception exits always
// resume at the interrupted instruction; for the other reasons the guest
// is moved past the exiting instruction unless a handler suppressed that.
func (m *Monitor) DispatchExit(core int, reason vmx.ExitReason) error {
	c, h := m.cpus[core], m.handles[core]
	c.ResetExitState()

	switch reason {
	case vmx.ExitExceptionNMI:
		raw, err := h.Read(vmx.ExitInterruptionInfo)
		if err != nil {
			return err
		}

		if err := m.Handler.HandleExceptionAndNMI(h, c, vmx.ParseInterruptInfo(uint32(raw))); err != nil {
			return err
		}

		return nil
	case vmx.ExitExternalInterrupt:
		raw, err := h.Read(vmx.ExitInterruptionInfo)
		if err != nil {
			return err
		}

		if err := m.Handler.HandleExternalInterrupt(h, c, vmx.ParseInterruptInfo(uint32(raw))); err != nil {
			return err
		}
	case vmx.ExitInterruptWindow:
		if err := m.Handler.HandleInterruptWindow(h, c); err != nil {
			return err
		}
	case vmx.ExitNMIWindow:
		m.Handler.HandleNMIWindow(c)
	default:
		return fmt.Errorf("%w: %d", vmx.ErrUnexpectedExitReason, reason)
	}

	if c.AdvanceRIP {
		return m.advanceRIP(h)
	}

	return nil
}

func (m *Monitor) advanceRIP(h vmx.Handle) error {
	rip, err := h.Read(vmx.GuestRIP)
	if err != nil {
		return err
	}

	length, err := h.Read(vmx.ExitInstructionLength)
	if err != nil {
		return err
	}

	return h.Write(vmx.GuestRIP, rip+length)
}

// Serve runs one handler loop per core until every source drains or one
// loop fails. Each loop owns its core's state exclusively and is locked to
// an OS thread; with pin it is also bound to the matching logical CPU.
func (m *Monitor) Serve(ctx context.Context, sources []ExitSource, pin bool) error {
	if len(sources) != len(m.cpus) {
		return fmt.Errorf("%d exit sources for %d cores", len(sources), len(m.cpus))
	}

	g, ctx := errgroup.WithContext(ctx)

	for i := range sources {
		core := i

		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if pin {
				if err := pinToCPU(core); err != nil {
					return fmt.Errorf("core %d: pinning: %w", core, err)
				}
			}

			for {
				reason, err := sources[core].Next(ctx)
				if errors.Is(err, io.EOF) {
					return nil
				}

				if err != nil {
					return err
				}

				if err := m.DispatchExit(core, reason); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}
