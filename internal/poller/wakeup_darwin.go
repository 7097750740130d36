//go:build darwin

package poller

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	EFD_CLOEXEC  = unix.O_CLOEXEC
	EFD_NONBLOCK = unix.O_NONBLOCK
)

// CreateWakeFD creates a self-pipe for wake-up notifications. Returns the
// read end and the write end.
func CreateWakeFD(initval uint, flags int) (int, int, error) {
	_ = initval
	_ = flags

	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

func WakeFDSupported() bool { return true }

func Wake(wakeWriteFD int) error {
	var one [1]byte
	one[0] = 1
	_, err := syscall.Write(wakeWriteFD, one[:])
	return err
}

func DrainWakeFD(wakeFD int) {
	var buf [64]byte
	for {
		if _, err := syscall.Read(wakeFD, buf[:]); err != nil {
			break
		}
	}
}

func CloseWakeFD(wakeFD, wakeWriteFD int) error {
	if wakeFD >= 0 {
		_ = syscall.Close(wakeFD)
	}
	if wakeWriteFD >= 0 && wakeWriteFD != wakeFD {
		_ = syscall.Close(wakeWriteFD)
	}
	return nil
}
