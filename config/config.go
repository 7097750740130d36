// Package config loads a reactor.Config from a github.com/spf13/viper
// instance, mirroring nabbar-golib's pervasive pattern of a mapstructure-
// tagged settings struct plus viper.Unmarshal with a
// mapstructure.StringToTimeDurationHookFunc decode hook (see
// nabbar-golib/certificates/certs/models.go's ViperDecoderHook for the
// shape this is grounded on).
//
// The dotted keys below match the external-interfaces table referenced by
// the distilled specification: selector.single_threaded,
// socket.backlog, and so on.
package config

import (
	"fmt"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	reactor "github.com/joeycumines/go-reactor"
	"github.com/spf13/viper"
)

// Settings is the mapstructure-tagged shape read from a viper instance.
// Zero values are left unset by FromViper so reactor's own defaultConfig
// values apply unless a key is actually present.
type Settings struct {
	Selector struct {
		SingleThreaded    bool `mapstructure:"single_threaded"`
		ProcessAllChanges bool `mapstructure:"process_all_changes"`
	} `mapstructure:"selector"`

	Socket struct {
		MaxChanges int  `mapstructure:"max_changes"`
		Backlog    int  `mapstructure:"backlog"`
		TCPNoDelay bool `mapstructure:"tcp_no_delay"`
		SendBuf    int  `mapstructure:"send_buf_size"`
		RecvBuf    int  `mapstructure:"recv_buf_size"`
		KeepAlive  bool `mapstructure:"keep_alive"`
		ReuseAddr  bool `mapstructure:"reuse_addr"`
		IPTOS      int  `mapstructure:"ip_tos"`
	} `mapstructure:"socket"`

	PacketWorker struct {
		BufferSize int `mapstructure:"buffer_size"`
		BufferCap  int `mapstructure:"buffer_cap"`
	} `mapstructure:"packetworker"`

	Timeout struct {
		PeriodMS int `mapstructure:"period_ms"`
	} `mapstructure:"timeout"`

	Secure struct {
		Protocols    []string `mapstructure:"protocols"`
		CipherSuites []string `mapstructure:"cipherSuites"`
	} `mapstructure:"secure"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// FromViper decodes v into a Settings struct and returns the equivalent
// []reactor.Option. Keys absent from v decode to Settings' zero values,
// which this function skips rather than passing through as explicit
// overrides — a caller composing FromViper's options with their own
// WithXxx calls (later options win) gets the expected precedence.
func FromViper(v *viper.Viper) ([]reactor.Option, error) {
	var s Settings
	dec := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(" "),
	))
	if err := v.Unmarshal(&s, dec); err != nil {
		return nil, fmt.Errorf("config: decode viper settings: %w", err)
	}
	return settingsToOptions(v, s), nil
}

func settingsToOptions(v *viper.Viper, s Settings) []reactor.Option {
	var opts []reactor.Option

	if v.IsSet("selector.single_threaded") {
		opts = append(opts, reactor.WithSingleThreaded(s.Selector.SingleThreaded))
	}
	if v.IsSet("selector.process_all_changes") {
		opts = append(opts, reactor.WithProcessAllChanges(s.Selector.ProcessAllChanges))
	}
	if v.IsSet("socket.max_changes") {
		opts = append(opts, reactor.WithMaxChanges(s.Socket.MaxChanges))
	}
	if v.IsSet("socket.backlog") {
		opts = append(opts, reactor.WithBacklog(s.Socket.Backlog))
	}
	if hasAnySocketOption(v) {
		opts = append(opts, reactor.WithSocketOptions(reactor.SocketOptions{
			TCPNoDelay:  s.Socket.TCPNoDelay,
			SendBufSize: s.Socket.SendBuf,
			RecvBufSize: s.Socket.RecvBuf,
			KeepAlive:   s.Socket.KeepAlive,
			ReuseAddr:   s.Socket.ReuseAddr,
			IPTOS:       s.Socket.IPTOS,
		}))
	}
	if v.IsSet("packetworker.buffer_size") {
		opts = append(opts, reactor.WithPacketWorkerBufferSize(s.PacketWorker.BufferSize))
	}
	if v.IsSet("packetworker.buffer_cap") {
		opts = append(opts, reactor.WithPacketWorkerBufferCap(s.PacketWorker.BufferCap))
	}
	if v.IsSet("timeout.period_ms") {
		opts = append(opts, reactor.WithHandshakeTimeout(time.Duration(s.Timeout.PeriodMS)*time.Millisecond))
	}
	if v.IsSet("secure.protocols") {
		opts = append(opts, reactor.WithTLSProtocols(s.Secure.Protocols...))
	}
	if v.IsSet("secure.cipherSuites") {
		opts = append(opts, reactor.WithTLSCipherSuites(s.Secure.CipherSuites...))
	}
	if v.IsSet("metrics.enabled") {
		opts = append(opts, reactor.WithMetrics(s.Metrics.Enabled))
	}

	return opts
}

func hasAnySocketOption(v *viper.Viper) bool {
	for _, key := range []string{
		"socket.tcp_no_delay", "socket.send_buf_size", "socket.recv_buf_size",
		"socket.keep_alive", "socket.reuse_addr", "socket.ip_tos",
	} {
		if v.IsSet(key) {
			return true
		}
	}
	return false
}

