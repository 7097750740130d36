package reactor

import "crypto/tls"

// Packet is anything that can be serialized to bytes for transmission.
// RawPacket satisfies it trivially for callers who already have a byte
// slice; framed protocols built on top of the reassembly worker (§4.5/§6)
// can implement their own Encode.
type Packet interface {
	Encode() []byte
}

// RawPacket is a Packet that is already the exact bytes to send.
type RawPacket []byte

func (p RawPacket) Encode() []byte { return p }

// Server is the accept-only role specialization of §4.7: it binds one
// listening socket with a configured backlog, registers for
// accept-readiness, and never calls Connect.
type Server struct {
	sel      *Selector
	listenFD int
}

// NewServer creates a Selector listening on addr; the Selector is not run,
// call Selector().Run. tlsCfg, if non-nil, wraps
// every accepted connection in a TLSChannel; a nil tlsCfg yields plain TCP.
func NewServer(addr string, onFrame PacketListener, tlsCfg *tls.Config, opts ...Option) (*Server, error) {
	sel, err := New(onFrame, opts...)
	if err != nil {
		return nil, err
	}
	fd, err := sel.Listen(addr, tlsCfg)
	if err != nil {
		return nil, err
	}
	return &Server{sel: sel, listenFD: fd}, nil
}

// Selector exposes the underlying Selector for Run/Stop/AddListener.
func (s *Server) Selector() *Selector { return s.sel }

// ListenFD is the server's accept socket handle.
func (s *Server) ListenFD() int { return s.listenFD }

// Send serializes pkt and enqueues it for asynchronous delivery on fd, per
// §4.7's "send(channel, packet) serializes the packet to bytes and enqueues
// for writing."
func (s *Server) Send(fd int, pkt Packet) error {
	return s.sel.Send(fd, pkt.Encode())
}

// Stop requests an orderly shutdown of the server's reactor.
func (s *Server) Stop() { s.sel.Stop() }
