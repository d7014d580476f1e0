// Package hosts implements the HostsEditor capability: adding and removing
// `127.0.0.1`/`::1` entries for a developer domain in a hosts file.
package hosts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/itsbjoern/roost/internal/errs"
)

const envHostsFile = "ROOST_HOSTS_FILE"

// DefaultPath is the conventional hosts file location on POSIX systems.
const DefaultPath = "/etc/hosts"

func addLines(domain string) (string, string) {
	return fmt.Sprintf("127.0.0.1\t%s", domain), fmt.Sprintf("::1\t%s", domain)
}

func domainInContent(content, domain string) bool {
	line1, line2 := addLines(domain)
	return strings.Contains(content, line1) || strings.Contains(content, line2)
}

// removeDomainLines drops every line that mentions domain, preserving the
// rest of the file byte-for-byte (modulo the removed lines).
func removeDomainLines(content, domain string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, domain) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// FileEditor implements the HostsEditor capability by reading and
// rewriting a plain file directly. It requires write access to Path — on a
// real `/etc/hosts` that typically means running with elevated privileges
// (see the platform-specific systemEditor for the privileged path); in
// tests it points at a throwaway file via ROOST_HOSTS_FILE.
type FileEditor struct {
	Path string
}

// Resolve returns the HostsEditor to use: ROOST_HOSTS_FILE if set (tests),
// otherwise the platform's privileged system editor targeting DefaultPath.
func Resolve() HostsEditor {
	if p := os.Getenv(envHostsFile); p != "" {
		return &FileEditor{Path: p}
	}
	return newSystemEditor(DefaultPath)
}

// HostsEditor mirrors the capability interface the domain registry expects,
// restated here so this package has no dependency on internal/registry.
type HostsEditor interface {
	Add(domain string) error
	Remove(domain string) error
	Has(domain string) (bool, error)
}

func (f *FileEditor) read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.Wrap(errs.IO, "read hosts file "+f.Path, err)
	}
	return string(data), nil
}

func (f *FileEditor) write(content string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return errs.Wrap(errs.IO, "create hosts file parent dir", err)
	}
	tmp := f.Path + ".roost-tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return errs.Wrap(errs.IO, "write hosts temp file", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.IO, "replace hosts file", err)
	}
	return nil
}

// Add appends `127.0.0.1\t<domain>` and `::1\t<domain>` unless either line
// is already present (idempotent).
func (f *FileEditor) Add(domain string) error {
	content, err := f.read()
	if err != nil {
		return err
	}
	if domainInContent(content, domain) {
		return nil
	}
	line1, line2 := addLines(domain)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += line1 + "\n" + line2 + "\n"
	return f.write(content)
}

// Remove deletes every line mentioning domain.
func (f *FileEditor) Remove(domain string) error {
	content, err := f.read()
	if err != nil {
		return err
	}
	if !strings.Contains(content, domain) {
		return nil
	}
	return f.write(removeDomainLines(content, domain))
}

// Has reports whether the IPv4 or the IPv6 loopback line for domain is
// present in the file's content.
func (f *FileEditor) Has(domain string) (bool, error) {
	content, err := f.read()
	if err != nil {
		return false, err
	}
	return domainInContent(content, domain), nil
}
