// Package policy validates developer hostnames and enforces the TLD
// allowlist that keeps the local CA from signing a certificate for a real,
// publicly-routable domain unless the caller opts out with allowAnyTLD.
package policy

import (
	"fmt"
	"strings"

	"github.com/itsbjoern/roost/internal/errs"
)

// AllowedTLDs is the fixed set of developer-safe top-level labels. A domain
// is only eligible for local issuance when its final label is one of these,
// unless the caller explicitly opts out via allowAnyTLD.
var AllowedTLDs = map[string]bool{
	"test":        true,
	"example":     true,
	"invalid":     true,
	"localhost":   true,
	"local":       true,
	"internal":    true,
	"lan":         true,
	"home":        true,
	"localdomain": true,
	"corp":        true,
	"private":     true,
	"docker":      true,
	"dev":         true,
}

// Validate checks domain is a well-formed ASCII hostname and, unless
// allowAnyTLD is set, that its final label is in AllowedTLDs. "localhost"
// itself (the bare name, no subdomain) is always rejected: it has no valid
// leaf in this system by design.
func Validate(domain string, allowAnyTLD bool) error {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))

	if domain == "" {
		return errs.New(errs.Validation, "empty domain")
	}
	if domain == "localhost" {
		return errs.New(errs.Validation, `"localhost" may not be registered directly`)
	}
	if strings.Contains(domain, "..") {
		return errs.New(errs.Validation, "domain contains consecutive dots: "+domain)
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if err := validateLabel(label, domain); err != nil {
			return err
		}
	}

	if allowAnyTLD {
		return nil
	}

	tld := labels[len(labels)-1]
	if !AllowedTLDs[tld] {
		return errs.New(errs.Validation, "domain "+domain+" does not end in an allowed development TLD")
	}
	return nil
}

func validateLabel(label, domain string) error {
	if label == "" {
		return errs.New(errs.Validation, "domain contains an empty label: "+domain)
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return errs.New(errs.Validation, fmt.Sprintf("label %q has a leading or trailing hyphen in domain %s", label, domain))
	}
	for _, r := range label {
		if !isAlphaNumeric(r) && r != '-' {
			return errs.New(errs.Validation, "domain "+domain+" contains an invalid character")
		}
	}
	return nil
}

func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
