// Package registry implements the domain registry: validating hostnames,
// binding them to a CA, ensuring a valid leaf exists, and keeping the hosts
// file and the main config in sync.
package registry

import (
	"os"
	"sort"

	"github.com/itsbjoern/roost/internal/config"
	"github.com/itsbjoern/roost/internal/errs"
	"github.com/itsbjoern/roost/internal/paths"
	"github.com/itsbjoern/roost/internal/tls/ca"
	"github.com/itsbjoern/roost/internal/tls/issuer"
	"github.com/itsbjoern/roost/internal/tls/policy"
)

// HostsEditor is the injected capability for maintaining hosts-file entries.
// The core never reaches for an implementation through global state; every
// call site receives one explicitly (it may be nil, meaning "skip").
type HostsEditor interface {
	Add(domain string) error
	Remove(domain string) error
	Has(domain string) (bool, error)
}

// Registry binds domain validation, CA lookup, and leaf issuance together
// against one on-disk layout.
type Registry struct {
	Paths       paths.Paths
	CAs         *ca.Manager
	AllowAnyTLD bool
}

// New returns a Registry rooted at p.
func New(p paths.Paths, allowAnyTLD bool) *Registry {
	return &Registry{Paths: p, CAs: ca.NewManager(p.CADir()), AllowAnyTLD: allowAnyTLD}
}

// Add validates domain, ensures the main config has a default CA (creating
// one named "default" if cfg.DefaultCA is empty), verifies that CA exists,
// ensures a valid leaf is issued, optionally registers the domain in hosts
// (before mutating cfg, so a hosts-file failure never leaves a
// half-registered domain), and finally records domain -> ca in cfg.
func (r *Registry) Add(cfg *config.Config, domain string, exact bool, hosts HostsEditor) error {
	if err := policy.Validate(domain, r.AllowAnyTLD); err != nil {
		return err
	}

	if cfg.DefaultCA == "" {
		cfg.DefaultCA = "default"
	}
	if _, err := r.CAs.EnsureDefault(cfg.DefaultCA); err != nil {
		return err
	}
	if !r.CAs.Exists(cfg.DefaultCA) {
		return errs.New(errs.Validation, "ca "+cfg.DefaultCA+" does not exist")
	}

	signingCA, err := r.CAs.Load(cfg.DefaultCA)
	if err != nil {
		return err
	}

	certPath := r.Paths.LeafCertPath(domain)
	keyPath := r.Paths.LeafKeyPath(domain)
	if err := issuer.EnsureValid(certPath, keyPath, signingCA, domain, exact); err != nil {
		return err
	}

	if hosts != nil {
		if err := hosts.Add(domain); err != nil {
			return errs.Wrap(errs.IO, "add hosts entry for "+domain, err)
		}
	}

	cfg.Domains[domain] = cfg.DefaultCA
	return nil
}

// Remove deletes the registry entry for domain, calls hosts.Remove if
// provided, and best-effort deletes the leaf files — their absence is not
// an error.
func (r *Registry) Remove(cfg *config.Config, domain string, hosts HostsEditor) error {
	delete(cfg.Domains, domain)

	if hosts != nil {
		if err := hosts.Remove(domain); err != nil {
			return errs.Wrap(errs.IO, "remove hosts entry for "+domain, err)
		}
	}

	removeIgnoreNotExist(r.Paths.LeafCertPath(domain))
	removeIgnoreNotExist(r.Paths.LeafKeyPath(domain))
	return nil
}

// SetCA unconditionally regenerates domain's leaf signed by newCA (no
// renewal check) and updates the registry entry.
func (r *Registry) SetCA(cfg *config.Config, domain, newCA string, exact bool) error {
	if _, ok := cfg.Domains[domain]; !ok {
		return errs.New(errs.Validation, "domain "+domain+" is not registered")
	}
	if !r.CAs.Exists(newCA) {
		return errs.New(errs.Validation, "ca "+newCA+" does not exist")
	}

	signingCA, err := r.CAs.Load(newCA)
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := issuer.Issue(signingCA, domain, exact, 0)
	if err != nil {
		return err
	}
	if err := issuer.Save(r.Paths.LeafCertPath(domain), r.Paths.LeafKeyPath(domain), certPEM, keyPEM); err != nil {
		return err
	}

	cfg.Domains[domain] = newCA
	return nil
}

// List returns the registered domains, sorted.
func (r *Registry) List(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Domains))
	for d := range cfg.Domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// CertPaths returns domain's leaf cert and key paths without touching disk.
func (r *Registry) CertPaths(domain string) (certPath, keyPath string) {
	return r.Paths.LeafCertPath(domain), r.Paths.LeafKeyPath(domain)
}

func removeIgnoreNotExist(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = err
	}
}
