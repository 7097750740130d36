//go:build linux

package reactor

import "golang.org/x/sys/unix"

// acceptSocket accepts one pending connection on a non-blocking listening
// socket. Linux's accept4(2) sets O_NONBLOCK/CLOEXEC atomically with the
// accept, avoiding the fork/exec race a separate fcntl call would have.
func acceptSocket(listenFD int) (int, error) {
	nfd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return nfd, err
}
