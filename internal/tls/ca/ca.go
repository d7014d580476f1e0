// Package ca implements a single-tier certificate authority: a self-signed
// root certificate, using an ECDSA P-256 key, that signs leaf certificates
// directly. Each CA lives in its own named directory under the manager's
// root, holding exactly two files: a certificate and its private key.
package ca

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

const (
	certFileName = "ca.pem"
	keyFileName  = "ca-key.pem"
	validity     = 10 * 365 * 24 * time.Hour
)

// CA holds the certificate and key material for one named certificate
// authority, plus the directory it is persisted under.
type CA struct {
	Name string
	Dir  string

	Cert *x509.Certificate
	Key  crypto.PrivateKey
}

// Load returns the CA named under dir/name. If either PEM file is missing,
// the returned CA is uninitialised (Cert and Key are nil) and Create must be
// called before it can sign anything. A directory containing only one of the
// two files is also treated as absent, per the both-files-or-absent
// invariant.
func Load(dir, name string) (*CA, error) {
	c := &CA{Name: name, Dir: filepath.Join(dir, name)}

	certPath := filepath.Join(c.Dir, certFileName)
	keyPath := filepath.Join(c.Dir, keyFileName)

	certPEM, errCert := os.ReadFile(certPath)
	keyPEM, errKey := os.ReadFile(keyPath)
	if errCert != nil || errKey != nil {
		return c, nil
	}

	cert, key, err := parseCertAndKey(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("ca: load %s: %w", name, err)
	}
	c.Cert = cert
	c.Key = key
	return c, nil
}

// IsInitialized reports whether both certificate and key are present.
func (c *CA) IsInitialized() bool {
	return c.Cert != nil && c.Key != nil
}

// Create generates a new self-signed CA certificate and key pair and
// persists both PEM files into c.Dir, creating it if necessary. It is an
// error to call Create on a CA that already has material on disk.
func (c *CA) Create() error {
	if c.IsInitialized() {
		return errors.New("ca: already initialised")
	}

	if err := os.MkdirAll(c.Dir, 0700); err != nil {
		return fmt.Errorf("ca: create store dir: %w", err)
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("ca: generate key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: fmt.Sprintf("Roost CA (%s)", c.Name),
		},
		NotBefore:             now,
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return fmt.Errorf("ca: create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("ca: parse certificate: %w", err)
	}

	if err := persist(c.Dir, cert, priv); err != nil {
		return err
	}

	c.Cert = cert
	c.Key = priv
	return nil
}

// CertPEM returns the PEM-encoded certificate, or nil if uninitialised.
func (c *CA) CertPEM() []byte {
	if c.Cert == nil {
		return nil
	}
	return encodeCertPEM(c.Cert)
}

// KeyPEM returns the PEM-encoded private key, or nil if uninitialised.
func (c *CA) KeyPEM() []byte {
	if c.Key == nil {
		return nil
	}
	return encodeKeyPEM(c.Key)
}

// CertPath returns the on-disk path of this CA's certificate PEM, whether
// or not it has been created yet.
func (c *CA) CertPath() string {
	return filepath.Join(c.Dir, certFileName)
}

// SignCertificate signs template with this CA's key and returns the
// PEM-encoded leaf certificate. The caller populates Subject, SANs, validity,
// and key usages on the template; SerialNumber is filled in if nil.
func (c *CA) SignCertificate(template *x509.Certificate, pub crypto.PublicKey) ([]byte, error) {
	if !c.IsInitialized() {
		return nil, errors.New("ca: not initialised")
	}

	if template.SerialNumber == nil {
		serial, err := randomSerial()
		if err != nil {
			return nil, err
		}
		template.SerialNumber = serial
	}

	der, err := x509.CreateCertificate(rand.Reader, template, c.Cert, pub, c.Key)
	if err != nil {
		return nil, fmt.Errorf("ca: sign certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func persist(dir string, cert *x509.Certificate, key crypto.PrivateKey) error {
	if err := writeFileAtomic(filepath.Join(dir, certFileName), encodeCertPEM(cert), 0644); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, keyFileName), encodeKeyPEM(key), 0600); err != nil {
		return err
	}
	return nil
}

func encodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func encodeKeyPEM(key crypto.PrivateKey) []byte {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic("ca: marshal key: " + err.Error())
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func parseCertAndKey(certPEM, keyPEM []byte) (*x509.Certificate, crypto.PrivateKey, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, nil, errors.New("no PEM block in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, err
	}

	kBlock, _ := pem.Decode(keyPEM)
	if kBlock == nil {
		return nil, nil, errors.New("no PEM block in key")
	}
	key, err := x509.ParsePKCS8PrivateKey(kBlock.Bytes)
	if err != nil {
		return nil, nil, err
	}

	return cert, key, nil
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it into place, so a reader never observes a partially written file.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	return serial, nil
}
