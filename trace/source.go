package trace

import (
	"context"
	"io"

	"github.com/govmx/vmxdbg/vmx"
)

// Source replays one core's slice of a trace. Next loads the exit's fields
// into the core's control structure and hands the reason to the caller,
// playing the part of the hardware exit.
type Source struct {
	handle vmx.Handle
	exits  []Exit
	next   int
}

// Sources splits a trace by core, preserving each core's exit order.
func Sources(t *Trace, handle func(core int) vmx.Handle) []*Source {
	srcs := make([]*Source, t.Cores)
	for i := range srcs {
		srcs[i] = &Source{handle: handle(i)}
	}

	for _, e := range t.Exits {
		srcs[e.Core].exits = append(srcs[e.Core].exits, e)
	}

	return srcs
}

func (s *Source) Next(ctx context.Context) (vmx.ExitReason, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if s.next >= len(s.exits) {
		return 0, io.EOF
	}

	e := s.exits[s.next]
	s.next++

	reason, err := e.ExitReason()
	if err != nil {
		return 0, err
	}

	info, err := e.InterruptInfo()
	if err != nil {
		return 0, err
	}

	fields := map[vmx.Field]uint64{
		vmx.ExitInterruptionInfo:  uint64(info.Raw()),
		vmx.ExitQualification:     e.Qualification,
		vmx.GuestRFlags:           e.RFlags,
		vmx.GuestInterruptibility: e.Interruptibility,
		vmx.ExitInstructionLength: e.InstructionLen,
		vmx.GuestRIP:              e.RIP,
	}

	if e.ErrorCode != nil {
		fields[vmx.ExitInterruptionErrorCode] = uint64(*e.ErrorCode)
	} else {
		fields[vmx.ExitInterruptionErrorCode] = 0
	}

	for f, v := range fields {
		if err := s.handle.Write(f, v); err != nil {
			return 0, err
		}
	}

	return reason, nil
}
