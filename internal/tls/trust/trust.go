// Package trust manages installation and removal of a roost CA certificate
// in the operating system's trust store. Every operation is keyed by the
// path to the CA's PEM file on disk, not by its bytes — the store is
// expected to still be readable there for Uninstall/IsInstalled.
package trust

import (
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/itsbjoern/roost/internal/errs"
)

// TrustStore installs and removes a CA certificate from the OS trust store.
// Implementations may invoke external tools and may block on user
// authentication (sudo, a GUI prompt). The core never reaches for one
// through global state; it is handed to call sites explicitly.
type TrustStore interface {
	// Install adds the certificate at caPEMPath to the OS trust store.
	Install(caPEMPath string) error
	// Uninstall removes it.
	Uninstall(caPEMPath string) error
	// IsInstalled reports whether it is already trusted.
	IsInstalled(caPEMPath string) (bool, error)
}

// NewPlatformTrustStore returns a TrustStore appropriate for the current
// operating system. On unsupported platforms it returns an implementation
// whose Install and Uninstall fail with a descriptive error and whose
// IsInstalled always reports false.
func NewPlatformTrustStore() TrustStore {
	return newPlatformTrustStore()
}

// loadCertCN reads the PEM file at path and returns the certificate's
// common name, used by platform implementations to identify the entry in
// the OS store.
func loadCertCN(path string) (string, error) {
	cert, err := loadCert(path)
	if err != nil {
		return "", err
	}
	return cert.Subject.CommonName, nil
}

func loadCert(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IO, "read ca certificate "+path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errs.New(errs.Crypto, "no certificate PEM block in "+path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.Crypto, "parse ca certificate "+path, err)
	}
	return cert, nil
}
