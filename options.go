package reactor

import "time"

// SocketOptions mirrors the tunables in §6: applied at accept/connect time.
// TCPNoDelay is split into pre/post connect application because some stacks
// reject TCP_NODELAY before the connect completes (see
// applyPreConnectOptions/applyPostConnectOptions in socket_unix.go).
type SocketOptions struct {
	TCPNoDelay    bool
	SendBufSize   int // 0 = leave at OS default
	RecvBufSize   int // 0 = leave at OS default
	KeepAlive     bool
	ReuseAddr     bool
	IPTOS         int // 0 = leave at OS default
}

// Config holds every tunable named in the external-interfaces table.
type Config struct {
	SingleThreaded     bool // selector.single_threaded
	ProcessAllChanges  bool // selector.process_all_changes
	MaxChanges         int  // socket.max_changes (also doubles as select timeout ms when ProcessAllChanges is false)
	Backlog            int  // socket.backlog
	PacketBufferSize   int  // packetworker.buffer_size
	PacketBufferCap    int  // DoS cap on a channel's reassembly buffer
	HandshakeTimeout   time.Duration // timeout.period_ms
	TLSProtocols       []string      // secure.protocols
	TLSCipherSuites    []string      // secure.cipherSuites
	Socket             SocketOptions
	MetricsEnabled     bool
	Logger             Logger
}

// Option configures a Config.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(c *Config) error { return f(c) }

func defaultConfig() *Config {
	return &Config{
		MaxChanges:       256,
		Backlog:          128,
		PacketBufferSize: 512,
		PacketBufferCap:  1 << 20, // 1 MiB, per the Design Notes DoS cap
		HandshakeTimeout: 30 * time.Second,
	}
}

// resolveOptions applies Options over a fresh defaultConfig, skipping nils.
func resolveOptions(opts []Option) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func WithSingleThreaded(enabled bool) Option {
	return optionFunc(func(c *Config) error { c.SingleThreaded = enabled; return nil })
}

func WithProcessAllChanges(enabled bool) Option {
	return optionFunc(func(c *Config) error { c.ProcessAllChanges = enabled; return nil })
}

func WithMaxChanges(n int) Option {
	return optionFunc(func(c *Config) error { c.MaxChanges = n; return nil })
}

func WithBacklog(n int) Option {
	return optionFunc(func(c *Config) error { c.Backlog = n; return nil })
}

func WithPacketWorkerBufferSize(n int) Option {
	return optionFunc(func(c *Config) error { c.PacketBufferSize = n; return nil })
}

func WithPacketWorkerBufferCap(n int) Option {
	return optionFunc(func(c *Config) error { c.PacketBufferCap = n; return nil })
}

func WithHandshakeTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) error { c.HandshakeTimeout = d; return nil })
}

func WithTLSProtocols(protocols ...string) Option {
	return optionFunc(func(c *Config) error { c.TLSProtocols = protocols; return nil })
}

func WithTLSCipherSuites(suites ...string) Option {
	return optionFunc(func(c *Config) error { c.TLSCipherSuites = suites; return nil })
}

func WithSocketOptions(so SocketOptions) Option {
	return optionFunc(func(c *Config) error { c.Socket = so; return nil })
}

func WithMetrics(enabled bool) Option {
	return optionFunc(func(c *Config) error { c.MetricsEnabled = enabled; return nil })
}

func WithLogger(l Logger) Option {
	return optionFunc(func(c *Config) error { c.Logger = l; return nil })
}
