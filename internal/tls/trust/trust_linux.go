//go:build linux

package trust

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/itsbjoern/roost/internal/errs"
)

// Debian/Ubuntu paths.
const (
	debianCertDir  = "/usr/local/share/ca-certificates"
	debianCertFile = "roost.crt"
	debianUpdate   = "update-ca-certificates"
)

// Fedora/RHEL/Arch paths.
const (
	fedoraCertDir  = "/etc/pki/ca-trust/source/anchors"
	fedoraCertFile = "roost.pem"
	fedoraUpdate   = "update-ca-trust"
)

type distroFamily int

const (
	distroUnknown distroFamily = iota
	distroDebian
	distroFedora
)

type linuxTrustStore struct {
	family distroFamily
}

func newPlatformTrustStore() TrustStore {
	return &linuxTrustStore{family: detectDistro()}
}

func detectDistro() distroFamily {
	if _, err := exec.LookPath(debianUpdate); err == nil {
		return distroDebian
	}
	if _, err := exec.LookPath(fedoraUpdate); err == nil {
		return distroFedora
	}
	return distroUnknown
}

// Install copies the CA at caPEMPath into the distro's trust anchor
// directory and refreshes the certificate cache. Requires root privileges.
func (l *linuxTrustStore) Install(caPEMPath string) error {
	data, err := os.ReadFile(caPEMPath)
	if err != nil {
		return errs.Wrap(errs.IO, "read ca certificate", err)
	}
	if _, err := loadCert(caPEMPath); err != nil {
		return err
	}

	target, updateCmd, err := l.paths()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errs.Wrap(errs.IO, "create trust anchor dir", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return errs.Wrap(errs.IO, "write trust anchor", err)
	}

	cmd := exec.Command(updateCmd)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(target)
		return errs.Wrap(errs.IO, updateCmd+" failed: "+string(output), err)
	}
	return nil
}

// Uninstall removes the trust anchor copy installed for caPEMPath and
// refreshes the certificate cache. Absence of the anchor is not an error.
func (l *linuxTrustStore) Uninstall(caPEMPath string) error {
	target, updateCmd, err := l.paths()
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.IO, "remove trust anchor", err)
	}

	cmd := exec.Command(updateCmd)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errs.Wrap(errs.IO, updateCmd+" failed: "+string(output), err)
	}
	return nil
}

// IsInstalled compares the trust anchor on disk against caPEMPath's content.
func (l *linuxTrustStore) IsInstalled(caPEMPath string) (bool, error) {
	target, _, err := l.paths()
	if err != nil {
		return false, nil
	}

	existing, err := os.ReadFile(target)
	if err != nil {
		return false, nil
	}
	want, err := os.ReadFile(caPEMPath)
	if err != nil {
		return false, errs.Wrap(errs.IO, "read ca certificate", err)
	}
	return string(existing) == string(want), nil
}

func (l *linuxTrustStore) paths() (certPath, updateCmd string, err error) {
	switch l.family {
	case distroDebian:
		return filepath.Join(debianCertDir, debianCertFile), debianUpdate, nil
	case distroFedora:
		return filepath.Join(fedoraCertDir, fedoraCertFile), fedoraUpdate, nil
	default:
		return "", "", errs.New(errs.IO, "unsupported linux distribution: neither "+debianUpdate+" nor "+fedoraUpdate+" found in PATH")
	}
}
