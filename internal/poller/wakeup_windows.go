//go:build windows

package poller

import "golang.org/x/sys/windows"

const (
	EFD_CLOEXEC  = 0
	EFD_NONBLOCK = 0
)

// CreateWakeFD returns -1, -1 on Windows: IOCP wake-up goes through
// PostQueuedCompletionStatus (WakeIOCP below), not through a readable fd.
func CreateWakeFD(initval uint, flags int) (int, int, error) {
	return -1, -1, nil
}

func CloseWakeFD(wakeFD, wakeWriteFD int) error { return nil }

func WakeFDSupported() bool { return false }

func DrainWakeFD(wakeFD int) {}

// WakeIOCP posts a NULL completion to the IOCP handle, causing a blocked
// PollIO to return immediately.
func WakeIOCP(iocpHandle uintptr) error {
	return windows.PostQueuedCompletionStatus(windows.Handle(iocpHandle), 0, 0, nil)
}
