//go:build windows

package poller

import (
	"errors"
)

// CloseFD is a no-op on Windows since wake FDs don't exist.
// The Windows IOCP implementation uses poller.Close() to clean up.
func CloseFD(fd int) error {
	// On Windows, CreateWakeFD returns -1 for both wake ends, so this
	// should never be called with a valid FD for the wake mechanism
	if fd >= 0 {
		return errors.New("closeFD not supported on Windows for wake mechanism")
	}
	return nil
}

// ReadFD is a no-op on Windows since wake FDs don't exist.
// The Windows IOCP implementation uses PostQueuedCompletionStatus for wake-up.
func ReadFD(fd int, buf []byte) (int, error) {
	return 0, nil
}

// WriteFD is a no-op on Windows since wake FDs don't exist.
// The Windows IOCP implementation uses PostQueuedCompletionStatus for wake-up.
func WriteFD(fd int, buf []byte) (int, error) {
	return 0, nil
}
