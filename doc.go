// Package reactor is a minimal, non-blocking TCP networking core with
// optional per-connection TLS, built around a single-threaded
// readiness-driven event loop (Selector).
//
// # Architecture
//
// [Selector] owns all socket state exclusively: the channel registry, the
// pending-writes table, and the pending-changes queue. Every mutation of
// that state — interest-set changes, handshake resumption, session
// invalidation, timeout expiry — is funneled through a typed
// [ChangeRequest] posted to a mutex-guarded FIFO and drained at the top of
// each loop iteration; no other goroutine ever touches selector state
// directly.
//
// A [Channel] is a tagged variant over [PlainChannel] (byte pass-through)
// and [TLSChannel] (a handshake-driving, encrypt/decrypt state machine
// bridging a real crypto/tls.Conn). Three auxiliary single-purpose workers
// run off the selector goroutine: internal/timeoutmgr (deadline scheduling),
// internal/taskworker (delegated TLS work), and internal/packetworker
// (byte-stream reassembly into application frames).
//
// # Platform support
//
// The readiness multiplexer (internal/poller) uses epoll on Linux and
// kqueue on Darwin; Windows registration exists for API parity but its
// socket transport is not implemented (see socket_windows.go).
//
// # Usage
//
//	sel, err := reactor.New(func(fd int, frame []byte) {
//	    fmt.Printf("fd=%d frame=%x\n", fd, frame)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	listenFD, err := sel.Listen("127.0.0.1:0", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go sel.Run(context.Background())
//	defer sel.Stop()
//
// # Error handling
//
// I/O errors on a single channel close only that channel; I/O errors from
// the readiness multiplexer itself are fatal and stop the whole reactor.
// See errors.go for the full error-kind table.
package reactor
