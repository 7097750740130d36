package reactor

import (
	"io"

	"github.com/google/uuid"

	"github.com/joeycumines/go-reactor/internal/poller"
)

// PlainChannel is a byte pass-through satisfying the Channel interface.
// Per §4.2, every TLS-shaped operation is a no-op.
type PlainChannel struct {
	fd      int
	id      string
	sel     *Selector
	closed  bool
	outDone bool
}

func newPlainChannel(fd int, sel *Selector) *PlainChannel {
	return &PlainChannel{fd: fd, id: uuid.NewString(), sel: sel}
}

func (c *PlainChannel) FD() int     { return c.fd }
func (c *PlainChannel) ID() string  { return c.id }

func (c *PlainChannel) Read(dst []byte) (int, error) {
	n, err := poller.ReadFD(c.fd, dst)
	if n > 0 {
		return n, nil
	}
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	if isWouldBlock(err) {
		return 0, nil
	}
	return 0, err
}

func (c *PlainChannel) Write(src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	n, err := poller.WriteFD(c.fd, src)
	if isWouldBlock(err) {
		return 0, nil
	}
	return n, err
}

func (c *PlainChannel) Connect(addr string) error {
	fd, err := createConnectSocket(addr, c.sel.cfg.Socket)
	if err != nil {
		return err
	}
	c.fd = fd
	return nil
}

func (c *PlainChannel) FinishConnect() (bool, error) {
	ok, err := finishConnect(c.fd)
	if ok {
		_ = applyPostConnectOptions(c.fd, c.sel.cfg.Socket)
	}
	return ok, err
}

func (c *PlainChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return poller.CloseFD(c.fd)
}

func (c *PlainChannel) Register(ops IOEvents) {
	c.sel.postChange(ChangeRequest{FD: c.fd, Kind: InterestOps, Ops: ops})
}

func (c *PlainChannel) InitHandshake()              {}
func (c *PlainChannel) ProcessHandshake()            {}
func (c *PlainChannel) HandshakePending() bool       { return false }
func (c *PlainChannel) InvalidateSession()           {}
func (c *PlainChannel) UpdateResult(HandshakeStatus) {}
func (c *PlainChannel) SetTaskPending(bool)          {}
func (c *PlainChannel) FlushOutbound()               {}
func (c *PlainChannel) HasPendingOutbound() bool     { return false }
