package flag

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"github.com/govmx/vmxdbg/dbg"
	"github.com/govmx/vmxdbg/idt"
	"github.com/govmx/vmxdbg/monitor"
	"github.com/govmx/vmxdbg/trace"
	"github.com/govmx/vmxdbg/vmx"
)

func Parse() error {
	c := CLI{}

	ctx := kong.Parse(&c,
		kong.Name("vmxdbg"),
		kong.Description("vmxdbg replays vm-exit interrupt traffic through the dispatch and re-injection core"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	return ctx.Run()
}

// ripReader reads the guest RIP out of a core's control structure for the
// debugger's hit reports.
type ripReader struct {
	handles []vmx.Handle
}

func (r *ripReader) RIP(coreID int) (uint64, error) {
	return r.handles[coreID].Read(vmx.GuestRIP)
}

func (cmd *ReplayCMD) Run() error {
	f, err := os.Open(cmd.Trace)
	if err != nil {
		return err
	}
	defer f.Close()

	tr, err := trace.Load(f)
	if err != nil {
		return err
	}

	if cmd.CPUProfile {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	handles := make([]vmx.Handle, tr.Cores)
	for i := range handles {
		handles[i] = vmx.NewMemVMCS()
	}

	d := dbg.New(&ripReader{handles: handles})

	for _, s := range cmd.Break {
		addr, err := ParseAddress(s)
		if err != nil {
			return err
		}

		d.AddBreakpoint(addr)
	}

	for _, s := range cmd.Watch {
		base, size, err := ParseWatch(s)
		if err != nil {
			return err
		}

		d.AddWatch(base, size)
	}

	for _, core := range cmd.Step {
		d.RequestStep(core)
	}

	if len(cmd.Image) > 0 {
		data, err := os.ReadFile(cmd.Image)
		if err != nil {
			return err
		}

		base, err := ParseAddress(cmd.ImageBase)
		if err != nil {
			return err
		}

		d.Code = &dbg.Image{Base: base, Data: data}
	}

	m := monitor.New(tr.Cores, func(core int) vmx.Handle { return handles[core] }, &idt.Handler{Debugger: d})

	srcs := trace.Sources(tr, func(core int) vmx.Handle { return handles[core] })

	exitSrcs := make([]monitor.ExitSource, len(srcs))
	for i, s := range srcs {
		exitSrcs[i] = s
	}

	if err := m.Serve(context.Background(), exitSrcs, cmd.Pin); err != nil {
		return err
	}

	for core := 0; core < tr.Cores; core++ {
		c := m.CPU(core)
		fmt.Printf("core %d: pending=%d dropped=%d window-armed=%t\n",
			core, c.Pending.Len(), c.Dropped, c.InterruptWindowExiting())
	}

	for _, bp := range d.Breakpoints() {
		fmt.Printf("breakpoint %#x: %d hits\n", bp.Addr, bp.Hits)
	}

	return nil
}

func (cmd *FieldsCMD) Run() error {
	for _, f := range vmx.Fields() {
		fmt.Printf("%-28s 0x%04X\n", f, uint32(f))
	}

	return nil
}
