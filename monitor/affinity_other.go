//go:build !linux

package monitor

import "errors"

var errAffinityUnsupported = errors.New("cpu pinning is only supported on linux")

func pinToCPU(core int) error {
	return errAffinityUnsupported
}
