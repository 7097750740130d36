package tlsconfig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// selfSignedPair generates a throwaway self-signed EC certificate and
// returns its PEM-encoded certificate and key, for builder tests that need
// real, parseable material without reading fixtures from disk.
func selfSignedPair(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "reactor-test"},
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

func TestBuilderProducesUsableServerConfig(t *testing.T) {
	certPEM, keyPEM := selfSignedPair(t)

	b := New()
	require.NoError(t, b.AddCertificatePairString(keyPEM, certPEM))

	cfg, err := b.Build("")
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestBuilderClientRequiresTrustStore(t *testing.T) {
	b := New()
	_, err := b.Build("example.com")
	require.Error(t, err)

	certPEM, _ := selfSignedPair(t)
	require.NoError(t, b.AddRootCAString(certPEM))

	cfg, err := b.Build("example.com")
	require.NoError(t, err)
	require.NotNil(t, cfg.RootCAs)
	require.Equal(t, "example.com", cfg.ServerName)
}

func TestSetCipherSuitesRejectsUnknownName(t *testing.T) {
	b := New()
	err := b.SetCipherSuites([]string{"NOT_A_REAL_SUITE"})
	require.Error(t, err)
}

func TestSetCipherSuitesAcceptsKnownName(t *testing.T) {
	b := New()
	names := []string{tls.CipherSuiteName(tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256)}
	require.NoError(t, b.SetCipherSuites(names))
	require.Len(t, b.suites, 1)
}

func TestSetClientAuthAndVersionBounds(t *testing.T) {
	certPEM, keyPEM := selfSignedPair(t)
	b := New()
	require.NoError(t, b.AddCertificatePairString(keyPEM, certPEM))
	b.SetClientAuth(tls.RequireAndVerifyClientCert).
		SetVersionMin(tls.VersionTLS12).
		SetVersionMax(tls.VersionTLS13)

	cfg, err := b.Build("")
	require.NoError(t, err)
	require.Equal(t, tls.RequireAndVerifyClientCert, cfg.ClientAuth)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Equal(t, uint16(tls.VersionTLS13), cfg.MaxVersion)
}
