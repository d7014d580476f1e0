// Package paths resolves roost's on-disk layout: the data directory and the
// fixed set of files and subdirectories under it, plus the project-local
// serve config path.
package paths

import (
	"os"
	"path/filepath"
)

// Paths is the resolved on-disk layout rooted at Data.
type Paths struct {
	Data string
}

// Resolve determines the data directory: ROOST_HOME if set, otherwise a
// per-platform user config directory, otherwise "./.roost".
func Resolve() Paths {
	if home := os.Getenv("ROOST_HOME"); home != "" {
		return Paths{Data: home}
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return Paths{Data: filepath.Join(dir, "roost")}
	}
	return Paths{Data: filepath.Join(".", ".roost")}
}

// ConfigFile is the main config file: <data>/config.toml.
func (p Paths) ConfigFile() string { return filepath.Join(p.Data, "config.toml") }

// CADir is the root directory holding one subdirectory per named CA.
func (p Paths) CADir() string { return filepath.Join(p.Data, "ca") }

// CertsDir is the directory holding per-domain leaf certificate/key pairs.
func (p Paths) CertsDir() string { return filepath.Join(p.Data, "certs") }

// GlobalRoostrc is the global serve config: <data>/.roostrc.
func (p Paths) GlobalRoostrc() string { return filepath.Join(p.Data, ".roostrc") }

// DaemonStateFile is the daemon state file: <data>/daemon.json.
func (p Paths) DaemonStateFile() string { return filepath.Join(p.Data, "daemon.json") }

// LeafCertPath returns the path of domain's leaf certificate.
func (p Paths) LeafCertPath(domain string) string {
	return filepath.Join(p.CertsDir(), domain+".pem")
}

// LeafKeyPath returns the path of domain's leaf private key.
func (p Paths) LeafKeyPath(domain string) string {
	return filepath.Join(p.CertsDir(), domain+"-key.pem")
}

// ProjectRoostrc returns the project serve config path for cwd: a file named
// ".roostrc" in cwd itself. There is no parent-directory walk.
func ProjectRoostrc(cwd string) string {
	return filepath.Join(cwd, ".roostrc")
}

// HasProjectRoostrc reports whether cwd has a project serve config.
func HasProjectRoostrc(cwd string) bool {
	info, err := os.Stat(ProjectRoostrc(cwd))
	return err == nil && !info.IsDir()
}
