// Package resolver implements the SNI-keyed certificate lookup table the
// proxy engine consults during the TLS handshake.
package resolver

import (
	"crypto/tls"
	"strings"

	"github.com/itsbjoern/roost/internal/errs"
)

// Resolver is an immutable, SNI-keyed table of parsed leaf certificates.
// A new one is built on proxy start and on every reload; in-flight
// connections keep using the snapshot they started under.
type Resolver struct {
	certs map[string]*tls.Certificate
}

// LeafSource supplies the (certPath, keyPath) pair for a domain without
// touching disk itself — the resolver does the reading.
type LeafSource interface {
	CertPaths(domain string) (certPath, keyPath string)
}

// Build loads a leaf certificate for every domain in domains using source,
// skipping any domain whose cert or key file is not present. It fails if
// zero certificates could be loaded — the proxy refuses to run without
// certs.
func Build(domains []string, source LeafSource) (*Resolver, error) {
	certs := make(map[string]*tls.Certificate, len(domains))
	for _, domain := range domains {
		certPath, keyPath := source.CertPaths(domain)
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			continue
		}
		certs[strings.ToLower(domain)] = &cert
	}

	if len(certs) == 0 {
		return nil, errs.New(errs.Crypto, "no leaf certificates could be loaded; refusing to start")
	}
	return &Resolver{certs: certs}, nil
}

// loopbackNames are never resolvable: there is no valid leaf for them by
// design, so a client connecting to them fails the handshake.
var loopbackNames = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// Resolve is the lookup behind GetCertificate: it is handed the client's
// SNI (*tls.ClientHelloInfo.ServerName in the real caller) and returns the
// matching certificate, or nil if there is none.
func (r *Resolver) Resolve(serverName string) *tls.Certificate {
	name := strings.TrimSpace(serverName)
	if name == "" {
		return nil
	}
	name = strings.ToLower(name)
	if loopbackNames[name] {
		return nil
	}

	if cert, ok := r.certs[name]; ok {
		return cert
	}
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		if cert, ok := r.certs[name[:idx]]; ok {
			return cert
		}
	}
	return nil
}

// GetCertificate adapts Resolve to the signature expected by
// tls.Config.GetCertificate.
func (r *Resolver) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := r.Resolve(hello.ServerName)
	if cert == nil {
		return nil, errs.New(errs.Network, "no certificate for server name "+hello.ServerName)
	}
	return cert, nil
}

// Len reports how many certificates are loaded, mostly for diagnostics.
func (r *Resolver) Len() int {
	return len(r.certs)
}
