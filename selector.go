package reactor

import (
	"context"
	"crypto/tls"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/joeycumines/go-reactor/internal/packetworker"
	"github.com/joeycumines/go-reactor/internal/poller"
	"github.com/joeycumines/go-reactor/internal/taskworker"
	"github.com/joeycumines/go-reactor/internal/timeoutmgr"
	"github.com/joeycumines/go-reactor/tlsconfig"
)

// PacketListener receives reassembled frames for a given socket (§4.5/§6).
type PacketListener func(fd int, frame []byte)

// Selector is the single-threaded, readiness-driven event loop described in
// §4.1. One goroutine (the one that calls Run) owns the poller, the channel
// registry and the pending-writes table; every other goroutine (task
// workers, per-channel TLS pumps, application callers of Send) talks to it
// only through postChange and the wake primitive, never by touching that
// state directly.
type Selector struct {
	cfg *Config

	poll *poller.FastPoller

	wakeReadFD  int
	wakeWriteFD int

	registry *channelRegistry

	changeMu sync.Mutex
	changes  changeQueue

	pendingMu sync.Mutex
	pending   map[int][][]byte

	listenFDs    map[int]bool
	listenerTLS  map[int]*tls.Config
	connectingFD map[int]bool
	tlsFDs       map[int]bool

	listenersMu sync.Mutex
	listeners   map[int]PacketListener
	onFrame     PacketListener

	metrics  *Metrics
	log      Logger
	timeouts *timeoutmgr.Manager
	tasks    *taskworker.Pool
	packets  *packetworker.Worker

	state *fastState

	stopOnce sync.Once
	loopDone chan struct{}
}

// New constructs a Selector from the given options. onFrame, if non-nil, is
// the default packet listener used for channels without a per-fd override
// registered via AddListener.
func New(onFrame PacketListener, opts ...Option) (*Selector, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	p := &poller.FastPoller{}
	if err := p.Init(); err != nil {
		return nil, err
	}

	wakeR, wakeW, err := poller.CreateWakeFD(0, 0)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	sel := &Selector{
		cfg:          cfg,
		poll:         p,
		wakeReadFD:   wakeR,
		wakeWriteFD:  wakeW,
		registry:     newChannelRegistry(),
		pending:      make(map[int][][]byte),
		listenFDs:    make(map[int]bool),
		listenerTLS:  make(map[int]*tls.Config),
		connectingFD: make(map[int]bool),
		tlsFDs:       make(map[int]bool),
		listeners:    make(map[int]PacketListener),
		onFrame:      onFrame,
		log:          cfg.Logger,
		state:        newFastState(),
		loopDone:     make(chan struct{}),
	}
	if sel.log == nil {
		sel.log = getGlobalLogger()
	}
	sel.metrics = &Metrics{} // always non-nil and always counting; Config.MetricsEnabled is not read here or by Metrics()

	sel.timeouts = timeoutmgr.New(func(fd int) {
		sel.postChange(ChangeRequest{FD: fd, Kind: TimeoutExpired})
		sel.wake()
	})

	workers := runtime.GOMAXPROCS(0)
	if workers < 2 {
		workers = 2
	}
	sel.tasks = taskworker.New(workers, 256)

	sel.packets = packetworker.New(cfg.PacketBufferSize, cfg.PacketBufferCap,
		packetworker.VarLenFraming{HeaderSize: 1, LengthSize: 2},
		func(fd int, frame []byte) { sel.deliverFrame(fd, frame) },
		func(fd int) {
			sel.metrics.onBufferOverflow()
			logWarn(sel.log, fd, "packet buffer cap exceeded, dropping channel", ErrBufferOverflow)
			sel.postChange(ChangeRequest{FD: fd, Kind: SessionInvalidated})
		})

	if wakeR >= 0 {
		_ = sel.poll.RegisterFD(wakeR, poller.EventRead, func(poller.IOEvents) { poller.DrainWakeFD(wakeR) })
	}

	return sel, nil
}

func (s *Selector) logger() Logger { return s.log }

// Metrics returns a point-in-time snapshot of this Selector's counters.
func (s *Selector) Metrics() MetricsSnapshot { return s.metrics.Snapshot() }

func (s *Selector) postChange(cr ChangeRequest) {
	s.changeMu.Lock()
	s.changes.Push(cr)
	s.changeMu.Unlock()
}

func (s *Selector) wake() {
	if poller.WakeFDSupported() {
		_ = poller.Wake(s.wakeWriteFD)
	}
}

// Listen registers a non-blocking TCP listening socket. Accepted
// connections are wrapped in a TLS channel when tlsCfg is non-nil.
func (s *Selector) Listen(addr string, tlsCfg *tls.Config) (int, error) {
	if tlsCfg != nil {
		applied, err := tlsconfig.ApplySecureConfig(tlsCfg, s.cfg.TLSProtocols, s.cfg.TLSCipherSuites)
		if err != nil {
			return -1, err
		}
		tlsCfg = applied
	}

	fd, err := createListenSocket(addr, s.cfg.Backlog, s.cfg.Socket)
	if err != nil {
		return -1, err
	}
	s.listenFDs[fd] = true
	if tlsCfg != nil {
		s.tlsFDs[fd] = true
		s.listenerTLS[fd] = tlsCfg
	}
	if err := s.poll.RegisterFD(fd, poller.EventRead, func(poller.IOEvents) {
		s.postChange(ChangeRequest{FD: fd, Kind: InterestOps, Ops: EventRead})
	}); err != nil {
		_ = poller.CloseFD(fd)
		delete(s.listenFDs, fd)
		return -1, err
	}
	return fd, nil
}

// Connect starts a non-blocking outbound connection. Completion is
// observed via write-readiness in the main loop.
func (s *Selector) Connect(addr string, tlsCfg *tls.Config) (int, error) {
	fd, _, err := s.ConnectChannel(addr, tlsCfg)
	return fd, err
}

// ConnectChannel is Connect, additionally returning the created Channel so
// a caller (e.g. MultiClient) can query HandshakePending directly without
// reaching into selector-owned registry state from another goroutine. Like
// Connect, it must only be called during setup, before Run's goroutine
// starts touching the registry.
func (s *Selector) ConnectChannel(addr string, tlsCfg *tls.Config) (int, Channel, error) {
	if tlsCfg != nil {
		applied, err := tlsconfig.ApplySecureConfig(tlsCfg, s.cfg.TLSProtocols, s.cfg.TLSCipherSuites)
		if err != nil {
			return -1, nil, err
		}
		tlsCfg = applied
	}

	fd, err := createConnectSocket(addr, s.cfg.Socket)
	if err != nil {
		return -1, nil, err
	}
	var ch Channel
	if tlsCfg != nil {
		ch = newTLSChannel(fd, s, false, tlsCfg)
		s.tlsFDs[fd] = true
	} else {
		ch = newPlainChannel(fd, s)
	}
	s.registry.insert(fd, ch)
	s.connectingFD[fd] = true
	if err := s.poll.RegisterFD(fd, poller.EventWrite, func(poller.IOEvents) {
		s.postChange(ChangeRequest{FD: fd, Kind: InterestOps, Ops: EventWrite})
	}); err != nil {
		s.registry.remove(fd)
		delete(s.connectingFD, fd)
		_ = poller.CloseFD(fd)
		return -1, nil, err
	}
	return fd, ch, nil
}

// Send enqueues application data for asynchronous delivery on fd. Safe to
// call from any goroutine.
func (s *Selector) Send(fd int, data []byte) error {
	if s.state.IsTerminal() {
		return ErrReactorClosed
	}
	cp := append([]byte(nil), data...)
	s.pendingMu.Lock()
	s.pending[fd] = append(s.pending[fd], cp)
	s.pendingMu.Unlock()
	s.postChange(ChangeRequest{FD: fd, Kind: InterestOps, Ops: EventWrite})
	s.wake()
	return nil
}

func (s *Selector) InvalidateSession(fd int) {
	s.postChange(ChangeRequest{FD: fd, Kind: SessionInvalidated})
	s.wake()
}

func (s *Selector) AddListener(fd int, l PacketListener) {
	s.listenersMu.Lock()
	s.listeners[fd] = l
	s.listenersMu.Unlock()
}

func (s *Selector) RemoveListener(fd int) {
	s.listenersMu.Lock()
	delete(s.listeners, fd)
	s.listenersMu.Unlock()
}

func (s *Selector) deliverFrame(fd int, frame []byte) {
	s.listenersMu.Lock()
	l, ok := s.listeners[fd]
	s.listenersMu.Unlock()
	if !ok {
		l = s.onFrame
	}
	if l != nil {
		l(fd, frame)
	}
}

func (s *Selector) armHandshakeTimeout(fd int) timeoutmgr.Token {
	d := s.cfg.HandshakeTimeout
	if d <= 0 {
		d = 30 * time.Second
	}
	return s.timeouts.Insert(fd, time.Now().Add(d))
}

func (s *Selector) cancelTimeout(tok timeoutmgr.Token) { s.timeouts.Cancel(tok) }

// Run drives the event loop until ctx is cancelled or Stop is called. Per
// §4.1's shutdown contract, pending writes are given one final drain
// attempt before every channel is closed.
func (s *Selector) Run(ctx context.Context) error {
	s.state.TryTransition(stateAwake, stateRunning)
	defer close(s.loopDone)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.loopDone:
		}
	}()

	for {
		if s.state.IsTerminal() {
			s.shutdown()
			return nil
		}

		s.drainChanges()

		// §4.1 step 2 / §6: process_all_changes=true blocks indefinitely
		// (drainChanges above already drained the whole queue); otherwise
		// socket.max_changes doubles as the bounded select timeout (ms).
		timeoutMS := -1
		if !s.cfg.ProcessAllChanges {
			timeoutMS = s.cfg.MaxChanges
			if timeoutMS <= 0 {
				timeoutMS = 1000
			}
		}
		if _, err := s.poll.PollIO(timeoutMS); err != nil {
			logError(s.log, -1, "poller error", err)
			s.metrics.onFatalPollError()
			return err
		}
	}
}

// Stop requests an orderly shutdown. Safe to call multiple times and from
// any goroutine.
func (s *Selector) Stop() {
	s.stopOnce.Do(func() {
		s.state.TransitionAny([]runState{stateAwake, stateRunning, stateSleeping, stateTerminating}, stateTerminated)
		s.wake()
	})
}

// drainChanges processes the pending-changes queue per §4.1 step 1: all of
// it when process_all_changes is set, else capped at socket.max_changes
// entries for this iteration (the rest waits for the next one).
func (s *Selector) drainChanges() {
	limit := -1
	if !s.cfg.ProcessAllChanges {
		limit = s.cfg.MaxChanges
		if limit <= 0 {
			limit = 256
		}
	}
	for n := 0; limit < 0 || n < limit; n++ {
		s.changeMu.Lock()
		cr, ok := s.changes.Pop()
		s.changeMu.Unlock()
		if !ok {
			break
		}
		s.applyChange(cr)
	}

	s.pendingMu.Lock()
	fds := make([]int, 0, len(s.pending))
	for fd := range s.pending {
		fds = append(fds, fd)
	}
	s.pendingMu.Unlock()
	for _, fd := range fds {
		s.flushPending(fd)
	}
}

func (s *Selector) applyChange(cr ChangeRequest) {
	switch cr.Kind {
	case InterestOps:
		s.handleInterest(cr.FD, cr.Ops)
	case TaskComplete:
		if ch, ok := s.registry.get(cr.FD); ok {
			ch.ProcessHandshake()
			s.flushPending(cr.FD)
		}
	case TimeoutExpired:
		s.metrics.onTimeoutFired()
		s.closeChannel(cr.FD, ErrChannelClosed)
	case SessionInvalidated:
		if ch, ok := s.registry.get(cr.FD); ok {
			ch.InvalidateSession()
			ch.ProcessHandshake()
		}
	}
}

func (s *Selector) handleInterest(fd int, ops IOEvents) {
	if s.listenFDs[fd] {
		s.acceptLoop(fd)
		return
	}
	if s.connectingFD[fd] {
		s.completeConnect(fd)
		return
	}
	ch, ok := s.registry.get(fd)
	if !ok {
		return
	}
	if ops&EventRead != 0 {
		s.readChannel(fd, ch)
	}
	if ops&EventWrite != 0 {
		s.flushPending(fd)
	}
}

func (s *Selector) acceptLoop(listenFD int) {
	for {
		nfd, err := acceptSocket(listenFD)
		if err != nil {
			if isWouldBlock(err) {
				return
			}
			logWarn(s.log, listenFD, "accept failed", err)
			return
		}
		var ch Channel
		if s.tlsFDs[listenFD] {
			ch = newTLSChannel(nfd, s, true, s.tlsConfigFor(listenFD))
		} else {
			ch = newPlainChannel(nfd, s)
		}
		s.registry.insert(nfd, ch)
		_ = s.poll.RegisterFD(nfd, poller.EventRead, func(ev poller.IOEvents) {
			s.postChange(ChangeRequest{FD: nfd, Kind: InterestOps, Ops: ev})
		})
		s.metrics.onAccept()
		if s.tlsFDs[listenFD] {
			ch.InitHandshake()
		}
	}
}

// tlsConfigFor returns the TLS config associated with a listener. Stored
// separately from tlsFDs so accepted connections inherit it.
func (s *Selector) tlsConfigFor(listenFD int) *tls.Config {
	if c, ok := s.listenerTLS[listenFD]; ok {
		return c
	}
	return nil
}

func (s *Selector) completeConnect(fd int) {
	ch, ok := s.registry.get(fd)
	if !ok {
		return
	}
	done, err := ch.FinishConnect()
	if err != nil {
		logWarn(s.log, fd, "connect failed", err)
		s.closeChannel(fd, err)
		return
	}
	if !done {
		return
	}
	delete(s.connectingFD, fd)
	_ = s.poll.ModifyFD(fd, poller.EventRead)
	s.metrics.onConnect()
	if s.tlsFDs[fd] {
		ch.InitHandshake()
	}
}

func (s *Selector) readChannel(fd int, ch Channel) {
	buf := make([]byte, 65536)
	for {
		n, err := ch.Read(buf)
		if n > 0 {
			s.metrics.onRead()
			s.packets.AddData(fd, buf[:n])
		}
		if err != nil {
			s.closeChannel(fd, err)
			return
		}
		if n == 0 {
			return
		}
	}
}

func (s *Selector) flushPending(fd int) {
	ch, ok := s.registry.get(fd)
	if !ok {
		return
	}

	// Retry any engine-produced ciphertext a prior attempt couldn't fully
	// write (no-op on PlainChannel) before touching the plaintext queue.
	ch.FlushOutbound()

	s.pendingMu.Lock()
	queue := s.pending[fd]
	s.pendingMu.Unlock()

	socketFull := false
	for len(queue) > 0 {
		item := queue[0]
		n, err := ch.Write(item)
		if err != nil {
			s.closeChannel(fd, err)
			return
		}
		if n == 0 && len(item) > 0 {
			socketFull = true
			break
		}
		if n > 0 {
			s.metrics.onWrite()
		}
		if n >= len(item) {
			queue = queue[1:]
		} else {
			queue[0] = item[n:]
			socketFull = true
			break
		}
	}

	s.pendingMu.Lock()
	if len(queue) == 0 {
		delete(s.pending, fd)
	} else {
		s.pending[fd] = queue
	}
	s.pendingMu.Unlock()

	// §4.1 Write: "stop when a buffer is partially written (socket full)...
	// When empty, reset interest to read-only." The change-request path
	// only triggers an optimistic write attempt; real continuation on a
	// full socket requires the poller itself to watch for write-readiness.
	// A TLS channel's own outbound ciphertext (tracked separately from the
	// plaintext pending-writes queue here) must also hold write-readiness
	// armed, or a partially flushed handshake/application record would
	// never get a second attempt.
	if (len(queue) > 0 && socketFull) || ch.HasPendingOutbound() {
		_ = s.poll.ModifyFD(fd, EventRead|EventWrite)
	} else if len(queue) == 0 {
		_ = s.poll.ModifyFD(fd, EventRead)
	}
}

func (s *Selector) closeChannel(fd int, cause error) {
	ch, ok := s.registry.get(fd)
	if !ok {
		return
	}
	_ = s.poll.UnregisterFD(fd)
	_ = ch.Close()
	s.registry.remove(fd)
	s.packets.RemoveChannel(fd)
	delete(s.connectingFD, fd)
	delete(s.tlsFDs, fd)
	s.RemoveListener(fd)
	s.metrics.onClose()
	if cause != nil && !errors.Is(cause, ErrChannelClosed) {
		logDebug(s.log, fd, "channel closed")
	}
}

func (s *Selector) shutdown() {
	s.registry.forEach(func(fd int, ch Channel) {
		s.flushPending(fd)
		_ = s.poll.UnregisterFD(fd)
		_ = ch.Close()
	})
	s.tasks.Stop(context.Background())
	s.timeouts.Stop()
	s.packets.Stop()
	_ = s.poll.Close()
	poller.CloseWakeFD(s.wakeReadFD, s.wakeWriteFD)
}
