package reactor

import "sync/atomic"

// Metrics are low-overhead atomic counters for reactor-level events. Safe for
// concurrent access from any goroutine; Snapshot returns a consistent-enough
// point-in-time copy (individual counters are read independently, not under
// one lock — acceptable for monitoring, not for correctness decisions).
type Metrics struct {
	accepts            atomic.Uint64
	connects           atomic.Uint64
	reads              atomic.Uint64
	writes             atomic.Uint64
	closes             atomic.Uint64
	handshakesStarted  atomic.Uint64
	handshakesFinished atomic.Uint64
	timeoutsFired      atomic.Uint64
	bufferOverflows    atomic.Uint64
	fatalPollErrors    atomic.Uint64
}

// MetricsSnapshot is a copied, immutable view of Metrics at one instant.
type MetricsSnapshot struct {
	Accepts            uint64
	Connects           uint64
	Reads              uint64
	Writes             uint64
	Closes             uint64
	HandshakesStarted  uint64
	HandshakesFinished uint64
	TimeoutsFired      uint64
	BufferOverflows    uint64
	FatalPollErrors    uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Accepts:            m.accepts.Load(),
		Connects:           m.connects.Load(),
		Reads:              m.reads.Load(),
		Writes:             m.writes.Load(),
		Closes:             m.closes.Load(),
		HandshakesStarted:  m.handshakesStarted.Load(),
		HandshakesFinished: m.handshakesFinished.Load(),
		TimeoutsFired:      m.timeoutsFired.Load(),
		BufferOverflows:    m.bufferOverflows.Load(),
		FatalPollErrors:    m.fatalPollErrors.Load(),
	}
}

func (m *Metrics) onAccept()          { m.accepts.Add(1) }
func (m *Metrics) onConnect()         { m.connects.Add(1) }
func (m *Metrics) onRead()            { m.reads.Add(1) }
func (m *Metrics) onWrite()           { m.writes.Add(1) }
func (m *Metrics) onClose()           { m.closes.Add(1) }
func (m *Metrics) onHandshakeStart()  { m.handshakesStarted.Add(1) }
func (m *Metrics) onHandshakeFinish() { m.handshakesFinished.Add(1) }
func (m *Metrics) onTimeoutFired()    { m.timeoutsFired.Add(1) }
func (m *Metrics) onBufferOverflow()  { m.bufferOverflows.Add(1) }
func (m *Metrics) onFatalPollError()  { m.fatalPollErrors.Add(1) }
