package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerClientRoleSpecializationsRoundTrip(t *testing.T) {
	addr := freeAddr(t)

	serverRecv := make(chan []byte, 1)
	var srv *Server
	srv, err := NewServer(addr, func(fd int, frame []byte) {
		serverRecv <- append([]byte(nil), frame...)
		_ = srv.Send(fd, RawPacket(encodeFrame([]byte("role-ack"))))
	}, nil)
	require.NoError(t, err)

	clientRecv := make(chan []byte, 1)
	cli, err := NewClient(addr, func(fd int, frame []byte) {
		clientRecv <- append([]byte(nil), frame...)
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Selector().Run(ctx)
	go cli.Selector().Run(ctx)
	defer srv.Stop()
	defer cli.Close()

	require.NoError(t, cli.Send(RawPacket(encodeFrame([]byte("role-check")))))

	select {
	case got := <-serverRecv:
		require.Equal(t, []byte("role-check"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the client's frame")
	}

	select {
	case got := <-clientRecv:
		require.Equal(t, []byte("role-ack"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("client never received the server's reply")
	}
}

func TestMultiClientTracksHandshakeCompletion(t *testing.T) {
	addr := freeAddr(t)

	srv, err := NewServer(addr, nil, nil)
	require.NoError(t, err)

	mc, err := NewMultiClient(addr, 3, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Selector().Run(ctx)
	go mc.Selector().Run(ctx)
	defer srv.Stop()
	defer mc.Close()

	// Plain-TCP connections have no handshake, so AllHandshakesDone should
	// already be true without waiting on anything.
	require.True(t, mc.AllHandshakesDone())
	require.Len(t, mc.FDs(), 3)

	for i := range mc.FDs() {
		require.NoError(t, mc.Send(i, RawPacket(encodeFrame([]byte("hi")))))
	}
}
