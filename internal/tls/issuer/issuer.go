// Package issuer generates and persists per-domain leaf certificates signed
// by a local CA, and decides when an existing leaf needs renewal.
package issuer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"os"
	"path/filepath"
	"time"

	"github.com/itsbjoern/roost/internal/errs"
	"github.com/itsbjoern/roost/internal/tls/ca"
)

// DefaultValidity is the leaf lifetime used when no explicit validity is
// requested. Renewal kicks in 30 days before expiry (RenewBefore), so this
// gives plenty of headroom between issuance and the next renewal.
const DefaultValidity = 2 * 365 * 24 * time.Hour

// RenewBefore is how far ahead of notAfter a leaf is considered due for
// renewal.
const RenewBefore = 30 * 24 * time.Hour

// Issue generates a fresh ECDSA P-256 key pair and signs a leaf certificate
// for domain with c. The SAN set is {domain} in exact mode, or
// {domain, *.domain} in wildcard mode; CN is always domain. validityDays, if
// positive, overrides DefaultValidity — used only by tests.
func Issue(c *ca.CA, domain string, exact bool, validityDays int) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Crypto, "generate leaf key", err)
	}

	validity := DefaultValidity
	if validityDays > 0 {
		validity = time.Duration(validityDays) * 24 * time.Hour
	}

	sans := []string{domain}
	if !exact {
		sans = append(sans, "*."+domain)
	}

	now := time.Now().UTC()
	template := &x509.Certificate{
		Subject:     pkix.Name{CommonName: domain},
		DNSNames:    sans,
		NotBefore:   now,
		NotAfter:    now.Add(validity),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certPEM, err = c.SignCertificate(template, &key.PublicKey)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Crypto, "sign leaf for "+domain, err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Crypto, "marshal leaf key", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM, nil
}

// Save writes certPEM and keyPEM to certPath and keyPath, creating parent
// directories as needed.
func Save(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return errs.Wrap(errs.IO, "create certs dir", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return errs.Wrap(errs.IO, "write leaf cert", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return errs.Wrap(errs.IO, "write leaf key", err)
	}
	return nil
}

// Load reads a leaf (cert, key) pair from disk. A missing cert or key file
// is treated as the pair being entirely absent, reported as an IO error.
func Load(certPath, keyPath string) (certPEM, keyPEM []byte, err error) {
	certPEM, err = os.ReadFile(certPath)
	if err != nil {
		return nil, nil, errs.Wrap(errs.IO, "read leaf cert", err)
	}
	keyPEM, err = os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, errs.Wrap(errs.IO, "read leaf key", err)
	}
	return certPEM, keyPEM, nil
}

// ExpiresWithin parses the first PEM certificate block at certPath and
// reports whether its notAfter falls within days of now, comparing in UTC
// seconds to avoid clock-skew and monotonic-reading artifacts.
func ExpiresWithin(certPath string, days int) (bool, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return false, errs.Wrap(errs.IO, "read leaf cert", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return false, errs.New(errs.Crypto, "no PEM block in "+certPath)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return false, errs.Wrap(errs.Crypto, "parse leaf cert "+certPath, err)
	}

	threshold := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour).Unix()
	return cert.NotAfter.UTC().Unix() <= threshold, nil
}

// EnsureValid issues and saves a fresh leaf for domain, signed by c, when the
// leaf is missing (either file absent counts as the pair being missing) or
// within RenewBefore of expiry. Otherwise it is a no-op.
func EnsureValid(certPath, keyPath string, c *ca.CA, domain string, exact bool) error {
	needsIssue := false

	if _, err := os.Stat(certPath); os.IsNotExist(err) {
		needsIssue = true
	} else if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		needsIssue = true
	} else if err == nil {
		expiring, err := ExpiresWithin(certPath, int(RenewBefore/(24*time.Hour)))
		if err != nil {
			return err
		}
		needsIssue = expiring
	}

	if !needsIssue {
		return nil
	}

	certPEM, keyPEM, err := Issue(c, domain, exact, 0)
	if err != nil {
		return err
	}
	return Save(certPath, keyPath, certPEM, keyPEM)
}
