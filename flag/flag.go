package flag

import (
	"fmt"
	"strconv"
	"strings"
)

// CLI is the top-level command set.
type CLI struct {
	Replay ReplayCMD `cmd:"" help:"Replay a recorded vm-exit trace through the dispatch core."`
	Fields FieldsCMD `cmd:"" help:"Print the control-structure field encodings."`
}

type ReplayCMD struct {
	Trace      string   `arg:"" help:"Recorded vm-exit trace (yaml)."`
	Break      []string `short:"b" help:"Guest addresses to claim as debugger breakpoints."`
	Watch      []string `short:"w" help:"Page-fault watch ranges as addr:size."`
	Step       []int    `short:"s" help:"Cores granted one pending single-step request each."`
	Image      string   `help:"Flat guest code image used for disassembly at breakpoints."`
	ImageBase  string   `default:"0" help:"Guest address the image is loaded at."`
	Pin        bool     `help:"Pin each core's handler loop to its logical cpu."`
	CPUProfile bool     `name:"cpu-profile" help:"Write a cpu profile to the current directory."`
}

type FieldsCMD struct{}

// ParseSize parses a size string as number[gGmMkK]. The multiplier is optional,
// and if not set, the unit passed in is used. The number can be any base and
// size.
func ParseSize(s, unit string) (int, error) {
	sz := strings.TrimRight(s, "gGmMkK")
	if len(sz) == 0 {
		return -1, fmt.Errorf("%q:can't parse as num[gGmMkK]:%w", s, strconv.ErrSyntax)
	}

	amt, err := strconv.ParseUint(sz, 0, 0)
	if err != nil {
		return -1, err
	}

	if len(s) > len(sz) {
		unit = s[len(sz):]
	}

	switch unit {
	case "G", "g":
		return int(amt) << 30, nil
	case "M", "m":
		return int(amt) << 20, nil
	case "K", "k":
		return int(amt) << 10, nil
	case "":
		return int(amt), nil
	}

	return -1, fmt.Errorf("can not parse %q as num[gGmMkK]:%w", s, strconv.ErrSyntax)
}

// ParseAddress parses a guest address in any base strconv accepts.
func ParseAddress(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: can't parse as address: %w", s, err)
	}

	return addr, nil
}

// ParseWatch parses an addr:size watch range.
func ParseWatch(s string) (uint64, uint64, error) {
	base, size, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, fmt.Errorf("%q: want addr:size: %w", s, strconv.ErrSyntax)
	}

	addr, err := ParseAddress(base)
	if err != nil {
		return 0, 0, err
	}

	n, err := ParseSize(size, "")
	if err != nil {
		return 0, 0, err
	}

	return addr, uint64(n), nil
}
