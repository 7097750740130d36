// Package tlsconfig builds a stdlib *tls.Config from certificate/trust
// material (§6: "Key store and trust store are loaded from filesystem
// paths with passphrases... Client mode requires a trust store always and
// a key store only when mutual auth is enabled; server mode
// symmetrically").
//
// The Builder API shape (AddCertificatePairFile/String,
// AddRootCAFile/String, AddClientCAFile, SetClientAuth,
// SetVersionMin/Max, SetCipherSuites) is grounded on
// github.com/nabbar/golib/certificates' own config/interface (cert.go,
// interface.go) — cipher-suite name validation follows that package's
// cipher/models.go Check() switch, re-targeted at this repository's §6
// secure.cipherSuites name list instead of nabbar's own enum enumeration.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// Builder accumulates certificate/trust material and produces a
// *tls.Config via Build.
type Builder struct {
	certs      []tls.Certificate
	rootPool   *x509.CertPool
	clientPool *x509.CertPool
	clientAuth tls.ClientAuthType
	minVersion uint16
	maxVersion uint16
	suites     []uint16
}

// New returns an empty Builder with TLS 1.2 as the floor, matching this
// repository's default secure.protocols behavior when unconfigured.
func New() *Builder {
	return &Builder{minVersion: tls.VersionTLS12, maxVersion: tls.VersionTLS13}
}

// AddCertificatePairString loads a PEM-encoded key/certificate pair from
// in-memory strings (e.g. already decrypted from a passphrase-protected
// store by the caller).
func (b *Builder) AddCertificatePairString(keyPEM, certPEM string) error {
	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return fmt.Errorf("tlsconfig: parse certificate pair: %w", err)
	}
	b.certs = append(b.certs, cert)
	return nil
}

// AddCertificatePairFile loads a PEM-encoded key/certificate pair from
// files on disk — the "key store" of §6.
func (b *Builder) AddCertificatePairFile(keyFile, certFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("tlsconfig: load certificate pair: %w", err)
	}
	b.certs = append(b.certs, cert)
	return nil
}

// AddRootCAString adds a PEM-encoded root CA to the trust store used to
// verify the peer's certificate (client mode's required trust store).
func (b *Builder) AddRootCAString(pem string) error {
	if b.rootPool == nil {
		b.rootPool = x509.NewCertPool()
	}
	if !b.rootPool.AppendCertsFromPEM([]byte(pem)) {
		return fmt.Errorf("tlsconfig: no certificates found in root CA PEM")
	}
	return nil
}

// AddRootCAFile is AddRootCAString, reading the PEM from a file.
func (b *Builder) AddRootCAFile(path string) error {
	pem, err := readFile(path)
	if err != nil {
		return fmt.Errorf("tlsconfig: read root CA file: %w", err)
	}
	return b.AddRootCAString(string(pem))
}

// AddClientCAFile adds a PEM-encoded CA used to verify client
// certificates, for mutual-auth server mode.
func (b *Builder) AddClientCAFile(path string) error {
	pem, err := readFile(path)
	if err != nil {
		return fmt.Errorf("tlsconfig: read client CA file: %w", err)
	}
	if b.clientPool == nil {
		b.clientPool = x509.NewCertPool()
	}
	if !b.clientPool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("tlsconfig: no certificates found in client CA PEM")
	}
	return nil
}

// SetClientAuth configures mutual-auth requirements on the server side.
func (b *Builder) SetClientAuth(mode tls.ClientAuthType) *Builder {
	b.clientAuth = mode
	return b
}

// SetVersionMin/SetVersionMax bound the negotiated protocol versions from
// §6's secure.protocols.
func (b *Builder) SetVersionMin(v uint16) *Builder { b.minVersion = v; return b }
func (b *Builder) SetVersionMax(v uint16) *Builder { b.maxVersion = v; return b }

// SetCipherSuites validates and installs an explicit cipher suite
// allow-list from §6's secure.cipherSuites, rejecting any name this
// package does not recognize as a real TLS 1.2 cipher suite (TLS 1.3
// suites are not configurable via tls.Config.CipherSuites — the stdlib
// always negotiates its own fixed TLS 1.3 list).
func (b *Builder) SetCipherSuites(names []string) error {
	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteByName(name)
		if !ok {
			return fmt.Errorf("tlsconfig: unknown cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	b.suites = suites
	return nil
}

// Build produces the *tls.Config for serverName (SNI on the client side,
// ignored on the server side beyond certificate selection).
func (b *Builder) Build(serverName string) (*tls.Config, error) {
	if len(b.certs) == 0 && b.rootPool == nil {
		return nil, fmt.Errorf("tlsconfig: builder has neither certificates nor a trust store")
	}
	cfg := &tls.Config{
		Certificates: b.certs,
		RootCAs:      b.rootPool,
		ClientCAs:    b.clientPool,
		ClientAuth:   b.clientAuth,
		MinVersion:   b.minVersion,
		MaxVersion:   b.maxVersion,
		CipherSuites: b.suites,
		ServerName:   serverName,
	}
	return cfg, nil
}

// cipherSuiteByName validates a §6 secure.cipherSuites entry against the
// stdlib's named TLS 1.2 suites, mirroring nabbar-golib's Cipher.Check()
// validity switch.
func cipherSuiteByName(name string) (uint16, bool) {
	for _, s := range tls.CipherSuites() {
		if s.Name == name {
			return s.ID, true
		}
	}
	for _, s := range tls.InsecureCipherSuites() {
		if s.Name == name {
			return s.ID, true
		}
	}
	return 0, false
}

// protocolVersionByName maps a §6 secure.protocols entry to a tls.Config
// version constant.
var protocolVersionByName = map[string]uint16{
	"TLS1.0": tls.VersionTLS10,
	"TLS1.1": tls.VersionTLS11,
	"TLS1.2": tls.VersionTLS12,
	"TLS1.3": tls.VersionTLS13,
}

// ApplySecureConfig overlays §6's secure.protocols/secure.cipherSuites
// policy (a space-separated name list, already split by the caller) onto
// base, returning a clone so the caller's own *tls.Config (certificates,
// trust stores) is never mutated in place. Returns base unchanged if both
// lists are empty, so a caller that never configured these options pays no
// cost and keeps base's own Min/MaxVersion and CipherSuites as set by
// Builder.Build.
func ApplySecureConfig(base *tls.Config, protocols, cipherSuites []string) (*tls.Config, error) {
	if len(protocols) == 0 && len(cipherSuites) == 0 {
		return base, nil
	}
	cfg := base.Clone()

	if len(protocols) > 0 {
		var min, max uint16
		for _, name := range protocols {
			v, ok := protocolVersionByName[name]
			if !ok {
				return nil, fmt.Errorf("tlsconfig: unknown protocol %q", name)
			}
			if min == 0 || v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		cfg.MinVersion = min
		cfg.MaxVersion = max
	}

	if len(cipherSuites) > 0 {
		suites := make([]uint16, 0, len(cipherSuites))
		for _, name := range cipherSuites {
			id, ok := cipherSuiteByName(name)
			if !ok {
				return nil, fmt.Errorf("tlsconfig: unknown cipher suite %q", name)
			}
			suites = append(suites, id)
		}
		cfg.CipherSuites = suites
	}

	return cfg, nil
}
