package trust

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testCN = "Roost CA (test)"

// writeTestCACert creates a self-signed CA certificate and writes it to a
// PEM file under dir, returning its path.
func writeTestCACert(t *testing.T, dir string) string {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: testCN},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	path := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(path, certPEM, 0644); err != nil {
		t.Fatalf("write test ca: %v", err)
	}
	return path
}

func TestNewPlatformTrustStore(t *testing.T) {
	ts := NewPlatformTrustStore()
	if ts == nil {
		t.Fatal("NewPlatformTrustStore returned nil")
	}
}

func TestTrustStoreInterface(t *testing.T) {
	var _ TrustStore = NewPlatformTrustStore()
}

func TestLoadCertCN(t *testing.T) {
	path := writeTestCACert(t, t.TempDir())

	cn, err := loadCertCN(path)
	if err != nil {
		t.Fatalf("loadCertCN: %v", err)
	}
	if cn != testCN {
		t.Errorf("CN = %q, want %q", cn, testCN)
	}
}

func TestLoadCert_MissingFile(t *testing.T) {
	if _, err := loadCert(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCert_GarbageData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(path, []byte("not PEM at all"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadCert(path); err == nil {
		t.Error("expected error for garbage data")
	}
}

func TestLoadCert_WrongPEMBlockType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	badPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("not a cert")})
	if err := os.WriteFile(path, badPEM, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadCert(path); err == nil {
		t.Error("expected error for wrong PEM block type")
	}
}

func TestIsInstalledWithoutInstall(t *testing.T) {
	ts := NewPlatformTrustStore()
	path := writeTestCACert(t, t.TempDir())

	installed, err := ts.IsInstalled(path)
	if err != nil {
		// Unsupported-platform implementations may error; supported ones
		// should not for a freshly generated, never-installed cert.
		t.Logf("IsInstalled error (acceptable on unsupported platforms): %v", err)
		return
	}
	if installed {
		t.Log("IsInstalled returned true; a CA with this CN may already be trusted on this system")
	}
}

func TestInstallRejectsMissingFile(t *testing.T) {
	ts := NewPlatformTrustStore()
	if err := ts.Install(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("expected error installing a nonexistent path")
	}
}

func TestInstallRejectsInvalidPEM(t *testing.T) {
	ts := NewPlatformTrustStore()
	path := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(path, []byte("not valid PEM data"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ts.Install(path); err == nil {
		t.Error("expected error installing invalid PEM data")
	}
}
