package proxy

import "net"

// peekConn wraps a net.Conn that has already had its first byte consumed
// by a caller deciding TLS vs. plaintext, re-presenting that byte on the
// next Read. It holds at most one buffered byte — a general-purpose
// protocol-sniffing adapter, not a TLS-specific hack.
type peekConn struct {
	net.Conn
	peeked   byte
	consumed bool
}

func newPeekConn(c net.Conn, first byte) *peekConn {
	return &peekConn{Conn: c, peeked: first}
}

func (p *peekConn) Read(b []byte) (int, error) {
	if !p.consumed {
		if len(b) == 0 {
			return 0, nil
		}
		b[0] = p.peeked
		p.consumed = true
		n, err := p.Conn.Read(b[1:])
		return n + 1, err
	}
	return p.Conn.Read(b)
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// sniffListener wraps a net.Listener, peeking the first byte of each
// accepted connection to decide whether it is a TLS handshake (0x16) or
// plaintext HTTP, then re-presenting the byte to whichever path handles
// the connection. The peek runs in its own goroutine per connection so a
// slow or silent client cannot stall acceptance of other connections.
type sniffListener struct {
	net.Listener
	onAccept func(conn net.Conn, first byte, isTLS bool) net.Conn

	ready chan acceptResult
	once  bool
}

func (s *sniffListener) Accept() (net.Conn, error) {
	if s.ready == nil {
		s.ready = make(chan acceptResult)
		go s.acceptLoop()
	}
	res, ok := <-s.ready
	if !ok {
		return nil, net.ErrClosed
	}
	return res.conn, res.err
}

func (s *sniffListener) acceptLoop() {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			s.ready <- acceptResult{err: err}
			if isPermanentAcceptError(err) {
				close(s.ready)
				return
			}
			continue
		}
		go s.peekAndDeliver(conn)
	}
}

func (s *sniffListener) peekAndDeliver(conn net.Conn) {
	var buf [1]byte
	n, err := conn.Read(buf[:])
	if n == 0 || err != nil {
		conn.Close()
		return
	}
	isTLS := buf[0] == 0x16
	s.ready <- acceptResult{conn: s.onAccept(conn, buf[0], isTLS)}
}

func isPermanentAcceptError(err error) bool {
	if ne, ok := err.(net.Error); ok && ne.Temporary() {
		return false
	}
	return true
}
