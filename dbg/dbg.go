// Package dbg is the debugger side of the intercept boundary: a breakpoint
// registry, single-step bookkeeping, and page-fault watches, with
// disassembly of the guest instruction at each breakpoint hit.
package dbg

import (
	"log"
	"sync"
)

// RegisterReader exposes the guest instruction pointer for hit reporting.
type RegisterReader interface {
	RIP(coreID int) (uint64, error)
}

// CodeReader reads guest code bytes at a linear address.
type CodeReader interface {
	ReadCode(addr uint64, b []byte) (int, error)
}

// Breakpoint is one registered software breakpoint.
type Breakpoint struct {
	Addr uint64
	Hits uint64
}

// Watch is a page-fault filter covering [Base, Base+Size).
type Watch struct {
	Base uint64
	Size uint64
	Hits uint64
}

// Debugger implements the intercept callbacks. Callbacks arrive on
// per-core handler threads, so the registry is locked; the per-core hot
// state stays with the cores.
type Debugger struct {
	Log  *log.Logger
	Regs RegisterReader
	Code CodeReader

	mu          sync.Mutex
	breakpoints map[uint64]*Breakpoint
	steps       map[int]int
	watches     []*Watch
}

func New(regs RegisterReader) *Debugger {
	return &Debugger{
		Regs:        regs,
		breakpoints: map[uint64]*Breakpoint{},
		steps:       map[int]int{},
	}
}

func (d *Debugger) logf(format string, args ...interface{}) {
	l := d.Log
	if l == nil {
		l = log.Default()
	}

	l.Printf(format, args...)
}

// AddBreakpoint registers a breakpoint at a guest linear address.
func (d *Debugger) AddBreakpoint(addr uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.breakpoints[addr]; !ok {
		d.breakpoints[addr] = &Breakpoint{Addr: addr}
	}
}

// RemoveBreakpoint drops the breakpoint at addr, reporting whether one
// existed.
func (d *Debugger) RemoveBreakpoint(addr uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.breakpoints[addr]
	delete(d.breakpoints, addr)

	return ok
}

// Breakpoints returns a snapshot of the registry.
func (d *Debugger) Breakpoints() []Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	bps := make([]Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		bps = append(bps, *bp)
	}

	return bps
}

// RequestStep arms one single-step expectation for the core.
func (d *Debugger) RequestStep(coreID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.steps[coreID]++
}

// AddWatch registers a page-fault filter.
func (d *Debugger) AddWatch(base, size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.watches = append(d.watches, &Watch{Base: base, Size: size})
}

// HandleBreakpoint claims a #BP exit iff a breakpoint is registered at the
// guest RIP. A claimed hit is counted and reported with the disassembled
// instruction when a code reader is attached.
func (d *Debugger) HandleBreakpoint(coreID int) bool {
	if d.Regs == nil {
		return false
	}

	rip, err := d.Regs.RIP(coreID)
	if err != nil {
		d.logf("core %d: breakpoint: reading rip: %v", coreID, err)

		return false
	}

	d.mu.Lock()
	bp, ok := d.breakpoints[rip]
	if ok {
		bp.Hits++
	}
	d.mu.Unlock()

	if !ok {
		return false
	}

	d.logf("core %d: breakpoint hit at %#x%s", coreID, rip, d.disasmAt(rip))

	return true
}

// HandleDebugBreakpoint claims a #DB exit iff a single step was requested
// for the core; each request covers exactly one step.
func (d *Debugger) HandleDebugBreakpoint(coreID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.steps[coreID] == 0 {
		return false
	}

	d.steps[coreID]--
	d.logf("core %d: single-step complete", coreID)

	return true
}

// HandlePageFault claims a #PF exit iff the faulting address falls under a
// registered watch.
func (d *Debugger) HandlePageFault(coreID int, addr uint64, errCode uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, w := range d.watches {
		if addr >= w.Base && addr < w.Base+w.Size {
			w.Hits++
			d.logf("core %d: watched #PF at %#x, error code %#x", coreID, addr, errCode)

			return true
		}
	}

	return false
}

func (d *Debugger) disasmAt(rip uint64) string {
	if d.Code == nil {
		return ""
	}

	insn := make([]byte, 16)
	if _, err := d.Code.ReadCode(rip, insn); err != nil {
		return ""
	}

	s, err := Disasm(insn, rip)
	if err != nil {
		return ""
	}

	return ": " + s
}
