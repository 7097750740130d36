//go:build darwin

package reactor

import "golang.org/x/sys/unix"

// acceptSocket accepts one pending connection on a non-blocking listening
// socket. Darwin's x/sys/unix has no accept4(2) binding, so non-blocking and
// close-on-exec are applied as separate fcntl calls right after accept.
func acceptSocket(listenFD int) (int, error) {
	nfd, _, err := unix.Accept(listenFD)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	unix.CloseOnExec(nfd)
	return nfd, nil
}
