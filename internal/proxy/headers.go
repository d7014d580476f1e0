package proxy

import (
	"net"
	"net/http"
)

// applyForwardedHeaders injects X-Forwarded-For, X-Forwarded-Proto, and
// X-Forwarded-Host onto outbound based on the original inbound request in.
// Host is left untouched on outbound; dev tooling (HMR) relies on it.
func applyForwardedHeaders(outbound, in *http.Request) {
	scheme := "http"
	if in.TLS != nil {
		scheme = "https"
	}

	remote := in.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	outbound.Header.Set("X-Forwarded-For", remote)
	outbound.Header.Set("X-Forwarded-Proto", scheme)
	outbound.Header.Set("X-Forwarded-Host", in.Host)
}
