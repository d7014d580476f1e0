// Package proxy implements the TLS-terminating reverse proxy: per-port
// listeners, protocol sniffing, SNI-keyed certificate resolution, HTTP/1.1
// request rewriting, and WebSocket upgrade tunneling.
package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/itsbjoern/roost/internal/resolver"
	"github.com/itsbjoern/roost/internal/rlog"
)

// alpnProtocols is deliberately limited to HTTP/1.1 and HTTP/1.0: HTTP/2 is
// never advertised toward the client, since backends are always plain
// HTTP/1.1 over loopback.
var alpnProtocols = []string{"http/1.1", "http/1.0"}

const defaultConnectTimeout = 10 * time.Second

// snapshot is the immutable (resolver, mappings) pair published atomically
// on every reload. A request sees a consistent pair for its lifetime.
type snapshot struct {
	resolver *resolver.Resolver
	mappings map[string]int
}

// Engine is the proxy's HTTP/TLS serving core. It is stateless except for
// the atomically-swapped snapshot; all concurrency safety comes from that
// snapshot being an immutable value.
type Engine struct {
	state   atomic.Value // holds *snapshot
	client  *http.Client
	log     *rlog.Logger
	servers []*http.Server
}

// New constructs an Engine publishing the given initial resolver and
// mapping table.
func New(res *resolver.Resolver, mappings map[string]int, log *rlog.Logger) *Engine {
	e := &Engine{log: log}
	e.state.Store(&snapshot{resolver: res, mappings: mappings})
	e.client = &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			DialContext: (&net.Dialer{
				Timeout: defaultConnectTimeout,
			}).DialContext,
		},
		// The engine decides what to do with redirect-bearing responses;
		// it never follows them on the backend's behalf.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return e
}

func (e *Engine) connectTimeout() time.Duration { return defaultConnectTimeout }

func (e *Engine) snapshot() *snapshot {
	return e.state.Load().(*snapshot)
}

// Reload atomically swaps in a freshly built resolver and mapping table.
// In-flight requests keep using the snapshot they started under.
func (e *Engine) Reload(res *resolver.Resolver, mappings map[string]int) {
	e.state.Store(&snapshot{resolver: res, mappings: mappings})
}

func (e *Engine) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return e.snapshot().resolver.GetCertificate(hello)
}

// tlsConfig builds a server TLS config consulting the engine's live
// resolver snapshot on every handshake.
func (e *Engine) tlsConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: e.getCertificate,
		NextProtos:     alpnProtocols,
		ClientAuth:     tls.NoClientCert,
		MinVersion:     tls.VersionTLS12,
	}
}

// Serve binds a listener for every port in ports and runs until ctx is
// canceled. Port 80 is given the plaintext HTTP->HTTPS redirect handler
// only when 443 is also present; every other port gets the sniff+TLS
// handler. It blocks until all listeners have returned.
func (e *Engine) Serve(ctx context.Context, ports []int) error {
	has443 := false
	for _, p := range ports {
		if p == 443 {
			has443 = true
			break
		}
	}

	errCh := make(chan error, len(ports))
	for _, port := range ports {
		port := port
		if port == 80 && has443 {
			go func() { errCh <- e.serveRedirect(ctx, port) }()
			continue
		}
		go func() { errCh <- e.serveSniffed(ctx, port) }()
	}

	var firstErr error
	for range ports {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown gracefully stops every listener started by Serve.
func (e *Engine) Shutdown(ctx context.Context) {
	for _, srv := range e.servers {
		srv.Shutdown(ctx)
	}
}

func (e *Engine) serveRedirect(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: http.HandlerFunc(redirectToHTTPS)}
	e.servers = append(e.servers, srv)
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func redirectToHTTPS(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	target := "https://" + host + r.URL.RequestURI()
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

func (e *Engine) serveSniffed(ctx context.Context, port int) error {
	raw, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}
	tlsCfg := e.tlsConfig()
	ln := &sniffListener{
		Listener: raw,
		onAccept: func(conn net.Conn, first byte, isTLS bool) net.Conn {
			pc := newPeekConn(conn, first)
			if isTLS {
				return tls.Server(pc, tlsCfg)
			}
			return pc
		},
	}

	srv := &http.Server{Handler: e}
	e.servers = append(e.servers, srv)
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ServeHTTP implements the request rewriting, backend selection, upgrade
// tunneling, and error mapping rules described for the proxy engine.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := e.snapshot()

	authority := targetAuthority(r.Host, r.URL.Host)
	host, port := splitHostPort(authority)
	if host == "" {
		host = authority
	}

	backendPort, ok := selectBackendPort(host, port, snap.mappings)
	if !ok {
		http.Error(w, "no mapping for host "+host, http.StatusBadRequest)
		return
	}

	if isUpgradeRequest(r.Header.Get("Connection"), r.Header.Get("Upgrade")) {
		e.handleUpgrade(w, r, backendPort)
		return
	}

	e.forward(w, r, backendPort)
}

func (e *Engine) forward(w http.ResponseWriter, r *http.Request, backendPort int) {
	outbound := r.Clone(r.Context())
	outbound.RequestURI = ""
	outbound.URL.Scheme = "http"
	outbound.URL.Host = "localhost:" + strconv.Itoa(backendPort)
	applyForwardedHeaders(outbound, r)

	resp, err := e.client.Do(outbound)
	if err != nil {
		e.log.Error("backend_error", err).Str("domain", r.Host).Send()
		http.Error(w, "Bad Gateway: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
