package monitor

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU binds the calling thread to one logical CPU so every exit for a
// core is handled on the same processor.
func pinToCPU(core int) error {
	var set unix.CPUSet

	set.Zero()
	set.Set(core % runtime.NumCPU())

	return unix.SchedSetaffinity(0, &set)
}
