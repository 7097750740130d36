//go:build windows

package reactor

import "errors"

// ErrWindowsSocketsUnsupported is returned by the raw-socket helpers on
// Windows. This mirrors the teacher's own poller_windows.go, which
// implements IOCP registration and wake-up but leaves per-event FD
// dispatch as a stub — parity, not a full Windows transport.
var ErrWindowsSocketsUnsupported = errors.New("reactor: raw socket plumbing not implemented on windows")

func isWouldBlock(err error) bool { return false }

func applyPreConnectOptions(fd int, so SocketOptions) error  { return ErrWindowsSocketsUnsupported }
func applyPostConnectOptions(fd int, so SocketOptions) error { return ErrWindowsSocketsUnsupported }

func createListenSocket(addr string, backlog int, so SocketOptions) (int, error) {
	return -1, ErrWindowsSocketsUnsupported
}

func createConnectSocket(addr string, so SocketOptions) (int, error) {
	return -1, ErrWindowsSocketsUnsupported
}

func finishConnect(fd int) (bool, error) { return false, ErrWindowsSocketsUnsupported }

func acceptSocket(listenFD int) (int, error) { return -1, ErrWindowsSocketsUnsupported }
