package reactor

import "github.com/joeycumines/go-reactor/internal/poller"

// IOEvents re-exports the poller's readiness bitmask so callers outside this
// package never need to import internal/poller directly.
type IOEvents = poller.IOEvents

const (
	EventRead  = poller.EventRead
	EventWrite = poller.EventWrite
	EventError = poller.EventError
	EventHangup = poller.EventHangup
)

// HandshakeStatus mirrors the TLS engine's report of what it needs next.
type HandshakeStatus int

const (
	NotHandshaking HandshakeStatus = iota
	NeedTask
	NeedUnwrap
	NeedWrap
	Finished
)

func (s HandshakeStatus) String() string {
	switch s {
	case NotHandshaking:
		return "NOT_HANDSHAKING"
	case NeedTask:
		return "NEED_TASK"
	case NeedUnwrap:
		return "NEED_UNWRAP"
	case NeedWrap:
		return "NEED_WRAP"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// RecordStatus is the wrap/unwrap result status from §4.3.
type RecordStatus int

const (
	StatusOK RecordStatus = iota
	StatusBufferUnderflow
	StatusBufferOverflow
	StatusClosed
)

// Channel is the polymorphic operation set shared by Plain and Secure
// channels (§3, §9's "tagged variant with a shared operation set"). Identity
// is the underlying socket handle; lifetime is owned exclusively by the
// selector's channel registry.
type Channel interface {
	FD() int

	// ID is a uuid tag stamped at channel creation, for log correlation
	// only — protocol identity remains the socket handle per §3.
	ID() string

	// Read decrypts (if applicable) and copies newly available plaintext
	// into dst, returning the byte count. Returns (0, nil) if no data is
	// currently available without blocking.
	Read(dst []byte) (int, error)

	// Write encrypts (if applicable) and transmits src, returning the
	// number of plaintext bytes consumed.
	Write(src []byte) (int, error)

	Connect(addr string) error
	FinishConnect() (bool, error)
	Close() error

	// Register updates the channel's interest set via the selector's
	// pending-change queue (not applied synchronously).
	Register(ops IOEvents)

	// TLS operations. No-ops on a Plain channel.
	InitHandshake()
	ProcessHandshake()
	HandshakePending() bool
	InvalidateSession()
	UpdateResult(status HandshakeStatus)
	SetTaskPending(bool)

	// FlushOutbound retries writing any engine-produced ciphertext that a
	// prior attempt could not fully deliver (socket full). No-op on Plain,
	// which has no internal buffer distinct from the pending-writes queue.
	FlushOutbound()

	// HasPendingOutbound reports whether such ciphertext is still queued,
	// so the selector knows whether to keep write-readiness armed once the
	// plaintext pending-writes queue has drained. Always false on Plain.
	HasPendingOutbound() bool
}
