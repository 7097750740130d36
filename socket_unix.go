//go:build linux || darwin

package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// isWouldBlock reports whether err is EAGAIN/EWOULDBLOCK, meaning "no data
// right now" rather than a real failure.
func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

func resolveSockaddr(addr string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ip4 := tcpAddr.IP.To4()
	if ip4 != nil {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	ip16 := tcpAddr.IP.To16()
	if ip16 == nil {
		return nil, fmt.Errorf("reactor: unresolvable address %q", addr)
	}
	sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
	copy(sa.Addr[:], ip16)
	return sa, nil
}

func sockaddrFamily(sa unix.Sockaddr) int {
	switch sa.(type) {
	case *unix.SockaddrInet6:
		return unix.AF_INET6
	default:
		return unix.AF_INET
	}
}

// applyPreConnectOptions applies options that must be set before connect
// (or right after accept). TCP_NODELAY is deliberately excluded here: per
// §6, some stacks reject it before finishConnect completes.
func applyPreConnectOptions(fd int, so SocketOptions) error {
	if so.ReuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return err
		}
	}
	if so.SendBufSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, so.SendBufSize); err != nil {
			return err
		}
	}
	if so.RecvBufSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, so.RecvBufSize); err != nil {
			return err
		}
	}
	if so.KeepAlive {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return err
		}
	}
	if so.IPTOS > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, so.IPTOS); err != nil {
			return err
		}
	}
	return nil
}

// applyPostConnectOptions applies TCP_NODELAY after finishConnect, per §6's
// explicit ordering requirement.
func applyPostConnectOptions(fd int, so SocketOptions) error {
	if so.TCPNoDelay {
		return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	return nil
}

// createListenSocket creates, binds and listens on a non-blocking TCP
// socket.
func createListenSocket(addr string, backlog int, so SocketOptions) (int, error) {
	sa, err := resolveSockaddr(addr)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(sockaddrFamily(sa), unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := applyPreConnectOptions(fd, so); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if backlog <= 0 {
		backlog = 128
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// createConnectSocket creates a non-blocking socket and starts an
// asynchronous connect. The caller must wait for write-readiness and then
// call finishConnect.
func createConnectSocket(addr string, so SocketOptions) (int, error) {
	sa, err := resolveSockaddr(addr)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(sockaddrFamily(sa), unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := applyPreConnectOptions(fd, so); err != nil {
		unix.Close(fd)
		return -1, err
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// finishConnect checks whether an in-progress non-blocking connect
// succeeded.
func finishConnect(fd int) (bool, error) {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, err
	}
	if errno != 0 {
		return false, unix.Errno(errno)
	}
	return true, nil
}

// acceptSocket is implemented per-OS in socket_linux.go/socket_darwin.go:
// Linux has accept4(2) in x/sys/unix, Darwin does not, so the two platforms
// need distinct non-blocking-accept strategies.
