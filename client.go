package reactor

import "crypto/tls"

// Client is the connect-only role specialization of §4.7: it creates one
// outbound socket, registers for connect-readiness, and never calls
// Listen/accept.
type Client struct {
	sel *Selector
	fd  int
}

// NewClient creates a Selector and starts a single non-blocking outbound
// connection to addr. The Selector is not run; call Selector().Run.
// tlsCfg, if non-nil, wraps the connection in a TLSChannel.
func NewClient(addr string, onFrame PacketListener, tlsCfg *tls.Config, opts ...Option) (*Client, error) {
	sel, err := New(onFrame, opts...)
	if err != nil {
		return nil, err
	}
	fd, err := sel.Connect(addr, tlsCfg)
	if err != nil {
		return nil, err
	}
	return &Client{sel: sel, fd: fd}, nil
}

// Selector exposes the underlying Selector for Run/AddListener.
func (c *Client) Selector() *Selector { return c.sel }

// FD is the client's one socket handle.
func (c *Client) FD() int { return c.fd }

// Send serializes pkt and enqueues it for asynchronous delivery.
func (c *Client) Send(pkt Packet) error {
	return c.sel.Send(c.fd, pkt.Encode())
}

// Close stops the whole reactor, per §4.7: "close_socket additionally
// stops the whole reactor (client has one socket)."
func (c *Client) Close() {
	c.sel.Stop()
}

// MultiClient supports N parallel outbound sockets to one destination, per
// §4.7's multi-socket client variant.
type MultiClient struct {
	sel *Selector
	fds []int
	chs []Channel
}

// NewMultiClient creates a Selector and starts n non-blocking outbound
// connections to addr. The Selector is not run; call Selector().Run.
func NewMultiClient(addr string, n int, onFrame PacketListener, tlsCfg *tls.Config, opts ...Option) (*MultiClient, error) {
	sel, err := New(onFrame, opts...)
	if err != nil {
		return nil, err
	}
	mc := &MultiClient{sel: sel}
	for i := 0; i < n; i++ {
		fd, ch, err := sel.ConnectChannel(addr, tlsCfg)
		if err != nil {
			for _, prior := range mc.chs {
				_ = prior.Close()
			}
			return nil, err
		}
		mc.fds = append(mc.fds, fd)
		mc.chs = append(mc.chs, ch)
	}
	return mc, nil
}

// Selector exposes the underlying Selector for Run/AddListener.
func (mc *MultiClient) Selector() *Selector { return mc.sel }

// FDs returns the socket handles of all N connections, in creation order.
func (mc *MultiClient) FDs() []int { return append([]int(nil), mc.fds...) }

// Send serializes pkt and enqueues it for asynchronous delivery on the i'th
// connection.
func (mc *MultiClient) Send(i int, pkt Packet) error {
	return mc.sel.Send(mc.fds[i], pkt.Encode())
}

// AllHandshakesDone polls whether every connection has completed its TLS
// handshake (always true for plain-TCP connections, since
// Channel.HandshakePending is a no-op false on PlainChannel).
func (mc *MultiClient) AllHandshakesDone() bool {
	for _, ch := range mc.chs {
		if ch.HandshakePending() {
			return false
		}
	}
	return true
}

// Close stops the reactor driving all N connections.
func (mc *MultiClient) Close() {
	mc.sel.Stop()
}
