package reactor

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-reactor/tlsconfig"
)

// selfSignedPairForIntegrationTest generates a throwaway self-signed EC
// certificate for tests that need a real *tls.Config without reading
// fixtures from disk.
func selfSignedPairForIntegrationTest(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "reactor-integration-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

// freeAddr reserves an ephemeral TCP port by briefly listening on it with
// the stdlib, then closing it — createListenSocket itself only takes raw
// addresses, not a net.Listener, so a Selector can't reuse the net.Listener
// directly.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// encodeFrame builds a §4.5/§6 variable-length frame: header(1B, unused by
// decoding) + length(2B BE) + payload.
func encodeFrame(payload []byte) []byte {
	out := make([]byte, 1+2+len(payload))
	out[0] = 0
	binary.BigEndian.PutUint16(out[1:3], uint16(len(payload)))
	copy(out[3:], payload)
	return out
}

func selfSignedServerConfig(t *testing.T) *tlsconfig.Builder {
	t.Helper()
	certPEM, keyPEM := selfSignedPairForIntegrationTest(t)
	b := tlsconfig.New()
	require.NoError(t, b.AddCertificatePairString(keyPEM, certPEM))
	return b
}

func TestPlainPingPong(t *testing.T) {
	addr := freeAddr(t)

	serverRecv := make(chan []byte, 1)
	var srv *Selector
	srv, err := New(func(fd int, frame []byte) {
		serverRecv <- append([]byte(nil), frame...)
		_ = srv.Send(fd, encodeFrame([]byte("pong")))
	})
	require.NoError(t, err)
	_, err = srv.Listen(addr, nil)
	require.NoError(t, err)

	clientRecv := make(chan []byte, 1)
	cli, err := New(func(fd int, frame []byte) {
		clientRecv <- append([]byte(nil), frame...)
	})
	require.NoError(t, err)
	clientFD, err := cli.Connect(addr, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	go cli.Run(ctx)
	defer srv.Stop()
	defer cli.Stop()

	require.NoError(t, cli.Send(clientFD, encodeFrame([]byte("ping"))))

	select {
	case got := <-serverRecv:
		require.Equal(t, []byte("ping"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received ping")
	}

	select {
	case got := <-clientRecv:
		require.Equal(t, []byte("pong"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("client never received pong")
	}
}

func TestVariableLengthFramingAcrossFragments(t *testing.T) {
	addr := freeAddr(t)

	serverRecv := make(chan []byte, 1)
	srv, err := New(func(fd int, frame []byte) {
		serverRecv <- append([]byte(nil), frame...)
	})
	require.NoError(t, err)
	_, err = srv.Listen(addr, nil)
	require.NoError(t, err)

	cli, err := New(nil)
	require.NoError(t, err)
	clientFD, err := cli.Connect(addr, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	go cli.Run(ctx)
	defer srv.Stop()
	defer cli.Stop()

	frame := encodeFrame([]byte("hello, fragmented world"))
	split := len(frame) / 2

	require.NoError(t, cli.Send(clientFD, frame[:split]))
	time.Sleep(50 * time.Millisecond) // let the first fragment land before the rest
	require.NoError(t, cli.Send(clientFD, frame[split:]))

	select {
	case got := <-serverRecv:
		require.Equal(t, []byte("hello, fragmented world"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("server never reassembled the fragmented frame")
	}
}

func TestTLSHandshakeCompletesAndDeliversFrame(t *testing.T) {
	addr := freeAddr(t)

	serverCfg, err := selfSignedServerConfig(t).Build("")
	require.NoError(t, err)

	clientBuilder := tlsconfig.New()
	// Build refuses a builder with neither certificates nor a trust store,
	// so a throwaway root is added. It is not the server's certificate (and
	// names no "localhost"): this test only exercises handshake/frame
	// delivery, so verification is skipped.
	rootPEM, _ := selfSignedPairForIntegrationTest(t)
	require.NoError(t, clientBuilder.AddRootCAString(rootPEM))
	clientCfg, err := clientBuilder.Build("localhost")
	require.NoError(t, err)
	clientCfg.InsecureSkipVerify = true

	serverRecv := make(chan []byte, 1)
	srv, err := New(func(fd int, frame []byte) {
		serverRecv <- append([]byte(nil), frame...)
	})
	require.NoError(t, err)
	_, err = srv.Listen(addr, serverCfg)
	require.NoError(t, err)

	cli, err := New(nil)
	require.NoError(t, err)
	clientFD, clientCh, err := cli.ConnectChannel(addr, clientCfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	go cli.Run(ctx)
	defer srv.Stop()
	defer cli.Stop()

	require.Eventually(t, func() bool {
		return !clientCh.HandshakePending()
	}, 5*time.Second, 10*time.Millisecond, "tls handshake never completed")

	require.NoError(t, cli.Send(clientFD, encodeFrame([]byte("secure ping"))))

	select {
	case got := <-serverRecv:
		require.Equal(t, []byte("secure ping"), got[3:])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the post-handshake frame")
	}

	snap := cli.Metrics()
	require.Equal(t, uint64(1), snap.HandshakesFinished)
}

func TestHandshakeInactivityTimeoutClosesChannel(t *testing.T) {
	addr := freeAddr(t)

	serverCfg, err := selfSignedServerConfig(t).Build("")
	require.NoError(t, err)

	srv, err := New(nil, WithHandshakeTimeout(100*time.Millisecond))
	require.NoError(t, err)
	_, err = srv.Listen(addr, serverCfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	defer srv.Stop()

	// A raw TCP connection that never speaks TLS: the server accepts it,
	// starts a handshake that never receives a ClientHello, and the
	// inactivity timeout should close it.
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.Metrics().TimeoutsFired >= 1
	}, 5*time.Second, 10*time.Millisecond, "handshake inactivity timeout never fired")
}

func TestSessionInvalidationForcesRehandshake(t *testing.T) {
	addr := freeAddr(t)

	serverCfg, err := selfSignedServerConfig(t).Build("")
	require.NoError(t, err)
	// Build needs a trust store; verification is skipped, so any root works.
	clientBuilder := tlsconfig.New()
	rootPEM, _ := selfSignedPairForIntegrationTest(t)
	require.NoError(t, clientBuilder.AddRootCAString(rootPEM))
	clientCfg, err := clientBuilder.Build("localhost")
	require.NoError(t, err)
	clientCfg.InsecureSkipVerify = true

	srv, err := New(nil)
	require.NoError(t, err)
	_, err = srv.Listen(addr, serverCfg)
	require.NoError(t, err)

	cli, err := New(nil)
	require.NoError(t, err)
	clientFD, clientCh, err := cli.ConnectChannel(addr, clientCfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	go cli.Run(ctx)
	defer srv.Stop()
	defer cli.Stop()

	require.Eventually(t, func() bool {
		return !clientCh.HandshakePending()
	}, 5*time.Second, 10*time.Millisecond, "initial handshake never completed")

	cli.InvalidateSession(clientFD)

	require.Eventually(t, func() bool {
		return clientCh.HandshakePending()
	}, 5*time.Second, 10*time.Millisecond, "InvalidateSession should force a re-handshake")

	require.Eventually(t, func() bool {
		return !clientCh.HandshakePending()
	}, 5*time.Second, 10*time.Millisecond, "re-handshake after InvalidateSession never completed")
}
