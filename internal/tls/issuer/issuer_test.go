package issuer

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itsbjoern/roost/internal/tls/ca"
)

func newTestCA(t *testing.T) *ca.CA {
	t.Helper()
	c, err := ca.Load(t.TempDir(), "default")
	if err != nil {
		t.Fatalf("ca.Load: %v", err)
	}
	if err := c.Create(); err != nil {
		t.Fatalf("ca.Create: %v", err)
	}
	return c
}

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("no PEM block in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func TestIssue_ExactMode(t *testing.T) {
	c := newTestCA(t)
	certPEM, keyPEM, err := Issue(c, "api.test", true, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(keyPEM) == 0 {
		t.Fatal("empty key PEM")
	}

	cert := parseCert(t, certPEM)
	if cert.Subject.CommonName != "api.test" {
		t.Errorf("CN = %q, want api.test", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "api.test" {
		t.Errorf("SANs = %v, want [api.test]", cert.DNSNames)
	}
}

func TestIssue_WildcardMode(t *testing.T) {
	c := newTestCA(t)
	certPEM, _, err := Issue(c, "api.test", false, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cert := parseCert(t, certPEM)
	want := map[string]bool{"api.test": true, "*.api.test": true}
	if len(cert.DNSNames) != 2 {
		t.Fatalf("SANs = %v, want 2 entries", cert.DNSNames)
	}
	for _, san := range cert.DNSNames {
		if !want[san] {
			t.Errorf("unexpected SAN %q", san)
		}
	}
}

func TestIssue_ValidityDaysOverride(t *testing.T) {
	c := newTestCA(t)
	certPEM, _, err := Issue(c, "api.test", true, 5)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cert := parseCert(t, certPEM)
	if cert.NotAfter.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Error("expected ~5-day validity override to be honored")
	}
}

func TestSaveAndLoad_Roundtrip(t *testing.T) {
	c := newTestCA(t)
	certPEM, keyPEM, err := Issue(c, "api.test", true, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	keyPath := filepath.Join(dir, "api.test-key.pem")

	if err := Save(certPath, keyPath, certPEM, keyPEM); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotCert, gotKey, err := Load(certPath, keyPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(gotCert) != string(certPEM) || string(gotKey) != string(keyPEM) {
		t.Error("loaded PEM does not match saved PEM")
	}
}

func TestLoad_MissingKeyFile(t *testing.T) {
	c := newTestCA(t)
	certPEM, _, err := Issue(c, "api.test", true, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	keyPath := filepath.Join(dir, "api.test-key.pem")
	os.WriteFile(certPath, certPEM, 0644)

	if _, _, err := Load(certPath, keyPath); err == nil {
		t.Fatal("expected error loading with missing key file")
	}
}

func TestExpiresWithin(t *testing.T) {
	c := newTestCA(t)
	certPEM, _, err := Issue(c, "api.test", true, 5)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	expiring, err := ExpiresWithin(certPath, 30)
	if err != nil {
		t.Fatalf("ExpiresWithin: %v", err)
	}
	if !expiring {
		t.Error("5-day cert should be reported as expiring within 30 days")
	}

	notExpiring, err := ExpiresWithin(certPath, 1)
	if err != nil {
		t.Fatalf("ExpiresWithin: %v", err)
	}
	if notExpiring {
		t.Error("5-day cert should not be reported as expiring within 1 day")
	}
}

func TestEnsureValid_IssuesWhenMissing(t *testing.T) {
	c := newTestCA(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	keyPath := filepath.Join(dir, "api.test-key.pem")

	if err := EnsureValid(certPath, keyPath, c, "api.test", true); err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if _, err := os.Stat(certPath); err != nil {
		t.Fatal("expected leaf cert to be created")
	}

	expiring, err := ExpiresWithin(certPath, 30)
	if err != nil {
		t.Fatalf("ExpiresWithin: %v", err)
	}
	if expiring {
		t.Error("freshly issued leaf should not be within the renewal threshold")
	}
}

func TestEnsureValid_NoopWhenFresh(t *testing.T) {
	c := newTestCA(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	keyPath := filepath.Join(dir, "api.test-key.pem")

	if err := EnsureValid(certPath, keyPath, c, "api.test", true); err != nil {
		t.Fatalf("EnsureValid (first): %v", err)
	}
	first, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := EnsureValid(certPath, keyPath, c, "api.test", true); err != nil {
		t.Fatalf("EnsureValid (second): %v", err)
	}
	second, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(first) != string(second) {
		t.Error("EnsureValid reissued a still-valid leaf")
	}
}

func TestEnsureValid_RenewsWhenExpiring(t *testing.T) {
	c := newTestCA(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "api.test.pem")
	keyPath := filepath.Join(dir, "api.test-key.pem")

	certPEM, keyPEM, err := Issue(c, "api.test", true, 5)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := Save(certPath, keyPath, certPEM, keyPEM); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := EnsureValid(certPath, keyPath, c, "api.test", true); err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}

	renewed, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(renewed) == string(certPEM) {
		t.Error("expected leaf to be renewed")
	}

	expiring, err := ExpiresWithin(certPath, 30)
	if err != nil {
		t.Fatalf("ExpiresWithin: %v", err)
	}
	if expiring {
		t.Error("renewed leaf should be valid well beyond 30 days")
	}
}
