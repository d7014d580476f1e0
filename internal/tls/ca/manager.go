package ca

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/itsbjoern/roost/internal/errs"
)

// Manager enumerates and manipulates the named CAs under Dir
// (<data>/ca/<name>/{ca.pem,ca-key.pem}).
type Manager struct {
	Dir string
}

// NewManager returns a Manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{Dir: dir}
}

// Create generates and persists a new CA named name. It fails if a CA with
// that name already exists.
func (m *Manager) Create(name string) (*CA, error) {
	c, err := Load(m.Dir, name)
	if err != nil {
		return nil, err
	}
	if c.IsInitialized() {
		return nil, errs.New(errs.StateConflict, fmt.Sprintf("ca %q already exists", name))
	}
	if err := c.Create(); err != nil {
		return nil, errs.Wrap(errs.Crypto, "create ca "+name, err)
	}
	return c, nil
}

// EnsureDefault returns the CA named name, creating it if it does not yet
// exist. It never overwrites existing material — a second call is a no-op
// that returns the same CA.
func (m *Manager) EnsureDefault(name string) (*CA, error) {
	c, err := Load(m.Dir, name)
	if err != nil {
		return nil, err
	}
	if c.IsInitialized() {
		return c, nil
	}
	if err := c.Create(); err != nil {
		return nil, errs.Wrap(errs.Crypto, "create ca "+name, err)
	}
	return c, nil
}

// List enumerates subdirectories of Dir, returning the sorted names of
// those that satisfy the both-files invariant.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IO, "list ca dir", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m.Exists(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the CA named name into memory. It fails if either PEM file is
// missing.
func (m *Manager) Load(name string) (*CA, error) {
	c, err := Load(m.Dir, name)
	if err != nil {
		return nil, err
	}
	if !c.IsInitialized() {
		return nil, errs.New(errs.Validation, fmt.Sprintf("ca %q does not exist", name))
	}
	return c, nil
}

// Exists reports whether name denotes a directory with both required files.
func (m *Manager) Exists(name string) bool {
	dir := filepath.Join(m.Dir, name)
	certPath := filepath.Join(dir, certFileName)
	keyPath := filepath.Join(dir, keyFileName)
	if _, err := os.Stat(certPath); err != nil {
		return false
	}
	if _, err := os.Stat(keyPath); err != nil {
		return false
	}
	return true
}

// referencingDomains reports the domains that cfgDomains maps to name,
// sorted, for use by Remove's conflict check.
func referencingDomains(cfgDomains map[string]string, name string) []string {
	var out []string
	for domain, ca := range cfgDomains {
		if ca == name {
			out = append(out, domain)
		}
	}
	sort.Strings(out)
	return out
}

// Remove deletes the CA named name, refusing while cfgDomains (the main
// config's domain-to-CA map) still references it. Removal of an absent CA
// is a no-op.
func (m *Manager) Remove(name string, cfgDomains map[string]string) error {
	if refs := referencingDomains(cfgDomains, name); len(refs) > 0 {
		return errs.New(errs.StateConflict, fmt.Sprintf("ca %q is still in use by domain %q", name, refs[0]))
	}
	dir := filepath.Join(m.Dir, name)
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(errs.IO, "remove ca "+name, err)
	}
	return nil
}
