//go:build linux

package hosts

import (
	"os"
	"os/exec"

	"github.com/itsbjoern/roost/internal/errs"
)

// systemEditor edits a real hosts file on Linux by staging the desired
// content in a temp file and invoking sudo to copy it into place.
type systemEditor struct {
	path string
}

func newSystemEditor(path string) HostsEditor {
	return &systemEditor{path: path}
}

func (s *systemEditor) current() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.Wrap(errs.IO, "read hosts file "+s.path, err)
	}
	return string(data), nil
}

func (s *systemEditor) publish(content string) error {
	tmp, err := os.CreateTemp("", "roost-hosts-*")
	if err != nil {
		return errs.Wrap(errs.IO, "stage hosts file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return errs.Wrap(errs.IO, "stage hosts file", err)
	}
	tmp.Close()

	cmd := exec.Command("sudo", "cp", tmp.Name(), s.path)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errs.Wrap(errs.IO, "sudo cp hosts: "+string(output), err)
	}
	return nil
}

func (s *systemEditor) Add(domain string) error {
	content, err := s.current()
	if err != nil {
		return err
	}
	if domainInContent(content, domain) {
		return nil
	}
	line1, line2 := addLines(domain)
	if content != "" && content[len(content)-1] != '\n' {
		content += "\n"
	}
	return s.publish(content + line1 + "\n" + line2 + "\n")
}

// Remove actually filters out the domain's lines and republishes the file.
// The original implementation this was ported from left this as a no-op;
// that gap is closed here.
func (s *systemEditor) Remove(domain string) error {
	content, err := s.current()
	if err != nil {
		return err
	}
	if !domainInContent(content, domain) {
		return nil
	}
	return s.publish(removeDomainLines(content, domain))
}

func (s *systemEditor) Has(domain string) (bool, error) {
	content, err := s.current()
	if err != nil {
		return false, err
	}
	return domainInContent(content, domain), nil
}
