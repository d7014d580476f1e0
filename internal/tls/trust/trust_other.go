//go:build !darwin && !linux

package trust

import (
	"runtime"

	"github.com/itsbjoern/roost/internal/errs"
)

type unsupportedTrustStore struct{}

func newPlatformTrustStore() TrustStore {
	return &unsupportedTrustStore{}
}

func (u *unsupportedTrustStore) Install(caPEMPath string) error {
	return errs.New(errs.IO, "trust store management is not supported on "+runtime.GOOS+"/"+runtime.GOARCH)
}

func (u *unsupportedTrustStore) Uninstall(caPEMPath string) error {
	return errs.New(errs.IO, "trust store management is not supported on "+runtime.GOOS+"/"+runtime.GOARCH)
}

func (u *unsupportedTrustStore) IsInstalled(caPEMPath string) (bool, error) {
	return false, nil
}
