//go:build darwin

package trust

import (
	"os/exec"

	"github.com/itsbjoern/roost/internal/errs"
)

const (
	securityBin    = "/usr/bin/security"
	systemKeychain = "/Library/Keychains/System.keychain"
)

type darwinTrustStore struct{}

func newPlatformTrustStore() TrustStore {
	return &darwinTrustStore{}
}

// Install adds the CA at caPEMPath to the macOS System Keychain as a
// trusted root certificate. Requires elevated (sudo) privileges.
func (d *darwinTrustStore) Install(caPEMPath string) error {
	if _, err := loadCert(caPEMPath); err != nil {
		return err
	}

	cmd := exec.Command(securityBin, "add-trusted-cert",
		"-d",
		"-r", "trustRoot",
		"-k", systemKeychain,
		caPEMPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errs.Wrap(errs.IO, "security add-trusted-cert: "+string(output), err)
	}
	return nil
}

// Uninstall removes the CA named in caPEMPath from the System Keychain.
func (d *darwinTrustStore) Uninstall(caPEMPath string) error {
	cn, err := loadCertCN(caPEMPath)
	if err != nil {
		return err
	}

	cmd := exec.Command(securityBin, "delete-certificate",
		"-c", cn,
		"-t",
		systemKeychain,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errs.Wrap(errs.IO, "security delete-certificate: "+string(output), err)
	}
	return nil
}

// IsInstalled checks whether the CA at caPEMPath is already present in the
// System Keychain.
func (d *darwinTrustStore) IsInstalled(caPEMPath string) (bool, error) {
	cn, err := loadCertCN(caPEMPath)
	if err != nil {
		return false, err
	}

	cmd := exec.Command(securityBin, "find-certificate",
		"-c", cn,
		systemKeychain,
	)
	return cmd.Run() == nil, nil
}
