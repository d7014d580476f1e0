package proxy

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// splitHostPort parses a Host header or request-URI authority into host and
// port, honoring bracketed IPv6 literals (e.g. "[::1]:8443"). Port is ""
// when absent.
func splitHostPort(authority string) (host, port string) {
	if host, port, err := net.SplitHostPort(authority); err == nil {
		return host, port
	}
	// No colon, or a colon-free host: net.SplitHostPort errors on those too.
	return authority, ""
}

// targetAuthority extracts the inbound request's target host[:port],
// preferring the Host header and falling back to the request-URI
// authority when the header is absent (proxy-form requests).
func targetAuthority(host, urlHost string) string {
	if host != "" {
		return host
	}
	return urlHost
}

// selectBackendPort implements the backend port selection rule: an
// explicit, non-443 port in the host wins outright (transparent
// passthrough); otherwise the domain is looked up in mappings, first by
// exact lowercase match, then by a case-insensitive linear scan.
func selectBackendPort(host, port string, mappings map[string]int) (int, bool) {
	if port != "" && port != "443" {
		if p, err := strconv.Atoi(port); err == nil {
			return p, true
		}
	}

	lower := strings.ToLower(host)
	if p, ok := mappings[lower]; ok {
		return p, true
	}
	for domain, p := range mappings {
		if strings.EqualFold(domain, host) {
			return p, true
		}
	}
	return 0, false
}

// isUpgradeRequest reports whether the request asks to upgrade to
// WebSocket: a Connection header containing the token "upgrade"
// (case-insensitive, possibly among a comma-separated list) and an Upgrade
// header equal to "websocket" (case-insensitive).
func isUpgradeRequest(connection, upgrade string) bool {
	if !strings.EqualFold(strings.TrimSpace(upgrade), "websocket") {
		return false
	}
	return httpguts.HeaderValuesContainsToken([]string{connection}, "upgrade")
}
