//go:build darwin

package hosts

import (
	"os"
	"os/exec"

	"github.com/itsbjoern/roost/internal/errs"
)

// systemEditor edits a real hosts file on macOS by staging the desired
// content in a temp file and invoking osascript to copy it into place with
// administrator privileges, then refreshing mDNSResponder.
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

	script := `do shell script "cp \"$ROOST_HOSTS_TMP\" ` + s.path + ` && (killall -HUP mDNSResponder || true)" with administrator privileges`
	cmd := exec.Command("osascript", "-e", script)
	cmd.Env = append(os.Environ(), "ROOST_HOSTS_TMP="+tmp.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return errs.Wrap(errs.IO, "update hosts file: "+string(output), err)
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
