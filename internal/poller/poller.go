// Package poller is the readiness multiplexer the selector drives: epoll on
// Linux, kqueue on Darwin, IOCP on Windows (stub parity only — see
// poller_windows.go). It owns no socket semantics beyond "this fd became
// readable/writable"; everything else lives in the reactor package above it.
//
// Always call UnregisterFD before closing a file descriptor, to avoid a
// callback firing against a recycled fd number.
package poller

// RegisterFD, UnregisterFD, ModifyFD and PollIO are implemented per
// platform in poller_linux.go / poller_darwin.go / poller_windows.go.
