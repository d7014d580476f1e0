//go:build !darwin && !linux

package hosts

import (
	"runtime"

	"github.com/itsbjoern/roost/internal/errs"
)

// unsupportedEditor reports a clean error on platforms with no wired
// privileged-write path (e.g. Windows); ROOST_HOSTS_FILE still works via
// FileEditor for tests.
type unsupportedEditor struct{}

func newSystemEditor(path string) HostsEditor {
	return &unsupportedEditor{}
}

func (u *unsupportedEditor) Add(domain string) error {
	return errs.New(errs.IO, "hosts-file editing is not supported on "+runtime.GOOS)
}

func (u *unsupportedEditor) Remove(domain string) error {
	return errs.New(errs.IO, "hosts-file editing is not supported on "+runtime.GOOS)
}

func (u *unsupportedEditor) Has(domain string) (bool, error) {
	return false, errs.New(errs.IO, "hosts-file editing is not supported on "+runtime.GOOS)
}
