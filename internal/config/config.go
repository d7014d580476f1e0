// Package config implements the main config: the canonical record of the
// default CA name and the domain-to-CA mapping, persisted as a single TOML
// file with advisory locking (shared for reads, exclusive for writes).
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/itsbjoern/roost/internal/errs"
)

// Config is the main on-disk record: the default CA name and the set of
// registered domains mapped to the CA name that signs their leaf.
type Config struct {
	DefaultCA string            `toml:"default_ca"`
	Domains   map[string]string `toml:"domains"`
}

// Empty returns a Config with an initialised, empty Domains map.
func Empty() *Config {
	return &Config{Domains: map[string]string{}}
}

// Load reads path under a shared advisory lock. A missing file yields an
// empty Config, not an error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Empty(), nil
	} else if err != nil {
		return nil, errs.Wrap(errs.IO, "stat main config", err)
	}

	lock := flock.New(path)
	if err := lock.RLock(); err != nil {
		return nil, errs.Wrap(errs.IO, "lock main config for read", err)
	}
	defer lock.Unlock()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errs.Wrap(errs.IO, "parse main config "+path, err)
	}
	if cfg.Domains == nil {
		cfg.Domains = map[string]string{}
	}
	return &cfg, nil
}

// Save writes cfg to path under an exclusive advisory lock, creating parent
// directories as needed. The file is created/truncated, never appended.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errs.Wrap(errs.IO, "create config dir", err)
	}

	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return errs.Wrap(errs.IO, "lock main config for write", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errs.Wrap(errs.IO, "open main config for write", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return errs.Wrap(errs.IO, "encode main config", err)
	}
	return nil
}

// CADomains returns the domains currently bound to caName, sorted.
func (c *Config) CADomains(caName string) []string {
	var out []string
	for domain, name := range c.Domains {
		if name == caName {
			out = append(out, domain)
		}
	}
	sort.Strings(out)
	return out
}
