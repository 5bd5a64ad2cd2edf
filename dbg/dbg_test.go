package dbg_test

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/govmx/vmxdbg/dbg"
)

type fixedRegs struct {
	rip uint64
}

func (f *fixedRegs) RIP(coreID int) (uint64, error) {
	return f.rip, nil
}

func TestBreakpointHitAndMiss(t *testing.T) {
	t.Parallel()

	regs := &fixedRegs{rip: 0x401000}
	d := dbg.New(regs)
	d.Log = log.New(&bytes.Buffer{}, "", 0)
	d.AddBreakpoint(0x401000)

	if !d.HandleBreakpoint(0) {
		t.Fatal("registered breakpoint not claimed")
	}

	regs.rip = 0x402000

	if d.HandleBreakpoint(0) {
		t.Fatal("unregistered address claimed")
	}

	bps := d.Breakpoints()
	if len(bps) != 1 || bps[0].Hits != 1 {
		t.Fatalf("registry: got %+v, want one breakpoint with one hit", bps)
	}
}

func TestRemoveBreakpoint(t *testing.T) {
	t.Parallel()

	d := dbg.New(&fixedRegs{rip: 0x1000})
	d.Log = log.New(&bytes.Buffer{}, "", 0)
	d.AddBreakpoint(0x1000)

	if !d.RemoveBreakpoint(0x1000) {
		t.Fatal("RemoveBreakpoint: got false, want true")
	}

	if d.RemoveBreakpoint(0x1000) {
		t.Fatal("RemoveBreakpoint twice: got true, want false")
	}

	if d.HandleBreakpoint(0) {
		t.Fatal("removed breakpoint still claimed")
	}
}

func TestSingleStepConsumed(t *testing.T) {
	t.Parallel()

	d := dbg.New(&fixedRegs{})
	d.Log = log.New(&bytes.Buffer{}, "", 0)

	if d.HandleDebugBreakpoint(0) {
		t.Fatal("step claimed with none requested")
	}

	d.RequestStep(0)

	if !d.HandleDebugBreakpoint(0) {
		t.Fatal("requested step not claimed")
	}

	// Each request covers exactly one step.
	if d.HandleDebugBreakpoint(0) {
		t.Fatal("step claimed twice for one request")
	}
}

func TestPageFaultWatch(t *testing.T) {
	t.Parallel()

	d := dbg.New(&fixedRegs{})
	d.Log = log.New(&bytes.Buffer{}, "", 0)
	d.AddWatch(0x7000, 0x1000)

	if !d.HandlePageFault(0, 0x7800, 0x2) {
		t.Fatal("fault inside watch range not claimed")
	}

	if d.HandlePageFault(0, 0x8000, 0x2) {
		t.Fatal("fault one past the range claimed")
	}

	if d.HandlePageFault(0, 0x6FFF, 0x2) {
		t.Fatal("fault below the range claimed")
	}
}

func TestDisasm(t *testing.T) {
	t.Parallel()

	s, err := dbg.Disasm([]byte{0x90}, 0x1000)
	if err != nil {
		t.Fatalf("Disasm: got %v, want nil", err)
	}

	if s != "nop" {
		t.Fatalf("Disasm: got %q, want \"nop\"", s)
	}

	if _, err := dbg.Disasm(nil, 0x1000); err == nil {
		t.Fatal("Disasm of empty code: got nil, want err")
	}
}

func TestBreakpointReportDisassembles(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	d := dbg.New(&fixedRegs{rip: 0x2000})
	d.Log = log.New(buf, "", 0)
	d.Code = &dbg.Image{Base: 0x2000, Data: []byte{0x90, 0x90, 0x90, 0xC3}}
	d.AddBreakpoint(0x2000)

	if !d.HandleBreakpoint(1) {
		t.Fatal("breakpoint not claimed")
	}

	if !strings.Contains(buf.String(), "nop") {
		t.Fatalf("hit report missing disassembly, got %q", buf.String())
	}
}

func TestImageOutOfRange(t *testing.T) {
	t.Parallel()

	im := &dbg.Image{Base: 0x1000, Data: make([]byte, 16)}

	b := make([]byte, 4)
	if _, err := im.ReadCode(0x2000, b); err == nil {
		t.Fatal("ReadCode outside the image: got nil, want err")
	}

	if n, err := im.ReadCode(0x1008, b); err != nil || n != 4 {
		t.Fatalf("ReadCode: got (%d, %v), want (4, nil)", n, err)
	}
}
