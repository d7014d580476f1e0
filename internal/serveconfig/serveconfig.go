// Package serveconfig implements the serve config: the domain-to-port
// mappings and listen ports that drive the proxy, persisted as a ".roostrc"
// TOML file. Two instances exist at runtime — project (cwd-only) and global
// (under the data dir) — and are merged with project winning on conflict.
package serveconfig

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/itsbjoern/roost/internal/errs"
)

// DefaultPorts is used whenever the effective port list would otherwise be
// empty.
var DefaultPorts = []int{80, 443}

// Mapping is a single domain-to-port entry.
type Mapping struct {
	Domain string `toml:"domain"`
	Port   int    `toml:"port"`
}

// Config is the on-disk ".roostrc" shape.
type Config struct {
	Serve ServeSection `toml:"serve"`
}

// ServeSection is the "[serve]" table: an ordered mapping list and an
// optional explicit port list.
type ServeSection struct {
	Mappings []Mapping `toml:"mappings"`
	Ports    []int     `toml:"ports"`
}

// Empty returns a Config with no mappings and no explicit ports.
func Empty() *Config {
	return &Config{}
}

// Load reads path under a shared advisory lock. A missing file yields an
// empty Config. Entries with an empty domain are dropped.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Empty(), nil
	} else if err != nil {
		return nil, errs.Wrap(errs.IO, "stat serve config", err)
	}

	lock := flock.New(path)
	if err := lock.RLock(); err != nil {
		return nil, errs.Wrap(errs.IO, "lock serve config for read", err)
	}
	defer lock.Unlock()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errs.Wrap(errs.IO, "parse serve config "+path, err)
	}

	filtered := cfg.Serve.Mappings[:0:0]
	for _, m := range cfg.Serve.Mappings {
		if m.Domain != "" {
			filtered = append(filtered, m)
		}
	}
	cfg.Serve.Mappings = filtered

	return &cfg, nil
}

// Save writes cfg to path under an exclusive advisory lock, creating parent
// directories and truncating any existing file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errs.Wrap(errs.IO, "create serve config dir", err)
	}

	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return errs.Wrap(errs.IO, "lock serve config for write", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errs.Wrap(errs.IO, "open serve config for write", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errs.Wrap(errs.IO, "encode serve config", err)
	}
	return nil
}

// AddMapping removes any existing entry for domain, then appends the new
// one — so the on-disk order reflects most-recent-wins.
func (c *Config) AddMapping(domain string, port int) {
	c.RemoveMapping(domain)
	c.Serve.Mappings = append(c.Serve.Mappings, Mapping{Domain: domain, Port: port})
}

// RemoveMapping filters out entries matching domain exactly.
func (c *Config) RemoveMapping(domain string) {
	filtered := c.Serve.Mappings[:0:0]
	for _, m := range c.Serve.Mappings {
		if m.Domain != domain {
			filtered = append(filtered, m)
		}
	}
	c.Serve.Mappings = filtered
}

// EffectivePorts returns the configured ports, sorted and deduplicated, or
// DefaultPorts if none are configured.
func (c *Config) EffectivePorts() []int {
	if len(c.Serve.Ports) == 0 {
		return append([]int(nil), DefaultPorts...)
	}
	return sortedUnique(c.Serve.Ports)
}

// AddPort adds port to the effective list.
func (c *Config) AddPort(port int) {
	ports := c.EffectivePorts()
	ports = append(ports, port)
	c.Serve.Ports = sortedUnique(ports)
}

// RemovePort removes port from the effective list. If the configured list
// was empty, the defaults are materialized first and then filtered — so
// removing 80 from an unconfigured store leaves only 443 explicit on disk.
func (c *Config) RemovePort(port int) {
	ports := c.EffectivePorts()
	filtered := ports[:0:0]
	for _, p := range ports {
		if p != port {
			filtered = append(filtered, p)
		}
	}
	c.Serve.Ports = filtered
}

// SetPorts replaces the configured port list outright.
func (c *Config) SetPorts(ports []int) {
	c.Serve.Ports = sortedUnique(ports)
}

// MergedMapping is a flattened (domain, port) pair tagged with which config
// file it came from.
type MergedMapping struct {
	Domain string
	Port   int
	Source Source
}

// Source identifies which serve config a merged mapping's winning entry
// came from.
type Source int

const (
	// SourceGlobal marks a mapping that came only from the global config.
	SourceGlobal Source = iota
	// SourceProject marks a mapping present in the project config, which
	// always wins over a same-domain global entry.
	SourceProject
)

func (s Source) String() string {
	if s == SourceProject {
		return "project"
	}
	return "global"
}

// Merge flattens project and global into a map keyed by domain, with
// project winning on conflict.
func Merge(project, global *Config) map[string]int {
	out := make(map[string]int)
	for _, m := range global.Serve.Mappings {
		out[m.Domain] = m.Port
	}
	for _, m := range project.Serve.Mappings {
		out[m.Domain] = m.Port
	}
	return out
}

// MergeWithSource behaves like Merge but returns an ordered, domain-sorted
// list tagging each mapping's winning source.
func MergeWithSource(project, global *Config) []MergedMapping {
	type entry struct {
		port   int
		source Source
	}
	merged := make(map[string]entry)
	for _, m := range global.Serve.Mappings {
		merged[m.Domain] = entry{port: m.Port, source: SourceGlobal}
	}
	for _, m := range project.Serve.Mappings {
		merged[m.Domain] = entry{port: m.Port, source: SourceProject}
	}

	domains := make([]string, 0, len(merged))
	for d := range merged {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	out := make([]MergedMapping, 0, len(domains))
	for _, d := range domains {
		e := merged[d]
		out = append(out, MergedMapping{Domain: d, Port: e.port, Source: e.source})
	}
	return out
}

// MergePorts returns the union of project's and global's effective ports,
// sorted; if the union is empty, DefaultPorts.
func MergePorts(project, global *Config) []int {
	union := append(project.EffectivePorts(), global.EffectivePorts()...)
	merged := sortedUnique(union)
	if len(merged) == 0 {
		return append([]int(nil), DefaultPorts...)
	}
	return merged
}

func sortedUnique(ports []int) []int {
	seen := make(map[int]bool, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
