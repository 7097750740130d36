package reactor

import (
	"io"
	"net"
	"sync"
	"time"
)

// bufferedPipe is a minimal, non-blocking-write, blocking-read byte queue.
// Stdlib net.Pipe's synchronous rendezvous semantics (a Write blocks until
// a matching Read consumes it) are unsuitable here: the selector must be
// able to hand ciphertext to the TLS engine without a goroutine standing by
// to read it at that exact instant. bufferedPipe decouples the two: Write
// always succeeds immediately, Read blocks only until data is available or
// the pipe is closed.
type bufferedPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newBufferedPipe() *bufferedPipe {
	p := &bufferedPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *bufferedPipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.cond.Signal()
	return len(b), nil
}

func (p *bufferedPipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Len reports how many bytes are currently buffered, without draining them.
func (p *bufferedPipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// TryReadAll returns and clears everything currently buffered, without
// blocking.
func (p *bufferedPipe) TryReadAll() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return nil
	}
	out := p.buf
	p.buf = nil
	return out
}

// PushBack re-queues unsent bytes at the front of the buffer.
func (p *bufferedPipe) PushBack(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(append([]byte(nil), b...), p.buf...)
}

func (p *bufferedPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// pipeConn adapts a pair of bufferedPipes to net.Conn, so a real
// crypto/tls.Conn can be driven over them. Deadlines are accepted but
// ignored: the engine side never needs real wall-clock deadlines since the
// reactor, not this conn, owns all timeout semantics (§4.6).
//
// onWrite, if set, fires synchronously after every successful Write to out
// (encrypted_out) — the engine produces ciphertext from whatever goroutine
// is driving it (a handshake task, or the application write pump), and
// nothing else would otherwise notice that bytes are waiting to go out.
// Without this hook, a handshake's ClientHello/ServerHello records sit in
// the buffer until some unrelated application Write happens to flush them.
type pipeConn struct {
	in      *bufferedPipe
	out     *bufferedPipe
	onWrite func()
}

func (c *pipeConn) Read(b []byte) (int, error) { return c.in.Read(b) }
func (c *pipeConn) Write(b []byte) (int, error) {
	n, err := c.out.Write(b)
	if err == nil && c.onWrite != nil {
		c.onWrite()
	}
	return n, err
}
func (c *pipeConn) Close() error {
	_ = c.in.Close()
	_ = c.out.Close()
	return nil
}
func (c *pipeConn) LocalAddr() net.Addr                { return pipeAddr{} }
func (c *pipeConn) RemoteAddr() net.Addr               { return pipeAddr{} }
func (c *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return nil }
