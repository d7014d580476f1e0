package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// handleUpgrade implements bidirectional tunneling for HTTP upgrade
// traffic (WebSocket). The client connection is hijacked before the
// backend request is issued; if the backend answers 101 Switching
// Protocols the two byte streams are spliced until either side closes.
// Upgrade/Connection headers are preserved verbatim on the 101 response.
func (e *Engine) handleUpgrade(w http.ResponseWriter, r *http.Request, backendPort int) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "upgrade not supported on this connection", http.StatusInternalServerError)
		return
	}

	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		e.log.Error("hijack_failed", err).Str("domain", r.Host).Send()
		return
	}
	defer clientConn.Close()

	backendAddr := net.JoinHostPort("localhost", strconv.Itoa(backendPort))
	backendConn, err := net.DialTimeout("tcp", backendAddr, e.connectTimeout())
	if err != nil {
		writeHijacked502(clientConn, "cannot reach backend")
		return
	}
	defer backendConn.Close()

	outbound := r.Clone(r.Context())
	outbound.RequestURI = ""
	outbound.URL.Scheme = "http"
	outbound.URL.Host = backendAddr
	applyForwardedHeaders(outbound, r)

	if err := outbound.Write(backendConn); err != nil {
		writeHijacked502(clientConn, "failed writing to backend")
		return
	}

	backendReader := bufio.NewReader(backendConn)
	resp, err := http.ReadResponse(backendReader, outbound)
	if err != nil {
		writeHijacked502(clientConn, "failed reading backend response")
		return
	}

	if err := resp.Write(clientConn); err != nil {
		return
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		resp.Body.Close()
		return
	}

	if clientBuf.Reader.Buffered() > 0 {
		buffered := make([]byte, clientBuf.Reader.Buffered())
		clientBuf.Read(buffered)
		backendConn.Write(buffered)
	}
	if backendReader.Buffered() > 0 {
		buffered := make([]byte, backendReader.Buffered())
		io.ReadFull(backendReader, buffered)
		clientConn.Write(buffered)
	}

	splice(clientConn, backendConn, e.log)
}

// splice copies bytes bidirectionally between two connections until either
// side closes, suppressing the expected end-of-stream errors. It returns as
// soon as the first direction ends and closes both connections to unblock
// the other copy — on a half-close only one io.Copy would otherwise ever
// return, leaking the goroutine and both connections.
func splice(a, b net.Conn, log interface {
	Warn(event string) *zerolog.Event
}) {
	done := make(chan struct{}, 2)
	cp := func(dst, src net.Conn) {
		_, err := io.Copy(dst, src)
		if err != nil && !isExpectedCloseError(err) {
			log.Warn("tunnel_copy_error").Err(err).Send()
		}
		done <- struct{}{}
	}
	go cp(a, b)
	go cp(b, a)
	<-done
	a.Close()
	b.Close()
}

func isExpectedCloseError(err error) bool {
	if err == io.EOF {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe")
}

func writeHijacked502(conn net.Conn, msg string) {
	body := fmt.Sprintf("Bad Gateway: %s", msg)
	fmt.Fprintf(conn, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
}
