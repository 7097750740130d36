//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

const (
	EFD_CLOEXEC  = unix.EFD_CLOEXEC
	EFD_NONBLOCK = unix.EFD_NONBLOCK
)

// CreateWakeFD creates an eventfd for wake-up notifications. The same fd
// serves as both read and write end.
func CreateWakeFD(initval uint, flags int) (int, int, error) {
	fd, err := unix.Eventfd(initval, flags)
	return fd, fd, err
}

// CloseWakeFD closes the wake eventfd.
func CloseWakeFD(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = unix.Close(wakeFD)
	}
	return nil
}

// WakeFDSupported reports whether this platform has a dedicated wake-fd
// mechanism (true on Linux/Darwin, false on the Windows stub).
func WakeFDSupported() bool { return true }

// Wake writes one notification to the eventfd, waking a blocked PollIO.
func Wake(wakeWriteFD int) error {
	var one [8]byte
	one[7] = 1
	_, err := unix.Write(wakeWriteFD, one[:])
	return err
}

// DrainWakeFD drains all pending notifications from the wake eventfd.
func DrainWakeFD(wakeFD int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(wakeFD, buf[:]); err != nil {
			break
		}
	}
}
