//go:build windows

package daemon

import "github.com/itsbjoern/roost/internal/errs"

// isAlive is always false on non-POSIX platforms per spec.
func isAlive(pid int) bool { return false }

func terminate(pid int) error {
	return errs.New(errs.IO, "daemon stop is not implemented on this platform")
}

func reload(pid int) error {
	return errs.New(errs.IO, "daemon reload is not implemented on this platform")
}
