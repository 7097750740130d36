// Package packetworker implements the packet reassembly worker of §4.5: a
// per-socket auto-growing append buffer, a pending-sockets deque, and two
// framing strategies (single-byte and variable-length, §6). The buffer cap
// (default 1 MiB, per the Design Notes' DoS mitigation) closes a channel
// that exceeds it rather than growing without bound.
package packetworker

import (
	"encoding/binary"
	"errors"
	"sync"
)

// ErrBufferCapExceeded names the condition of a channel's reassembly buffer
// growing past its configured cap. The Worker itself neither returns nor
// passes this value: AddData has no return value, and the condition is
// reported only by calling the overflow callback given to New.
var ErrBufferCapExceeded = errors.New("packetworker: buffer cap exceeded")

// Framing produces framed application messages from a channel's buffered
// bytes. Implementations: SingleByteFraming, VarLenFraming.
type Framing interface {
	// Process consumes as many complete frames as are present in buf,
	// invoking deliver once per frame, and returns the number of leading
	// bytes consumed. Must not consume a partial trailing frame.
	Process(buf []byte, deliver func(frame []byte)) (consumed int)
}

// SingleByteFraming delivers one listener callback per byte (§4.5 "Simple
// (single-byte) framing").
type SingleByteFraming struct{}

func (SingleByteFraming) Process(buf []byte, deliver func(frame []byte)) int {
	for i := range buf {
		deliver(buf[i : i+1])
	}
	return len(buf)
}

// HeaderSize and LengthSize select the variable-length framing layout:
// header(1|2 bytes) + length(2|4 bytes, big-endian, payload-only) + payload.
type VarLenFraming struct {
	HeaderSize int
	LengthSize int
}

func (f VarLenFraming) Process(buf []byte, deliver func(frame []byte)) int {
	consumed := 0
	for {
		rem := buf[consumed:]
		prefix := f.HeaderSize + f.LengthSize
		if len(rem) < prefix {
			return consumed
		}
		var payloadLen int
		switch f.LengthSize {
		case 2:
			payloadLen = int(binary.BigEndian.Uint16(rem[f.HeaderSize:]))
		case 4:
			payloadLen = int(binary.BigEndian.Uint32(rem[f.HeaderSize:]))
		default:
			panic("packetworker: LengthSize must be 2 or 4")
		}
		total := prefix + payloadLen
		if len(rem) < total {
			return consumed
		}
		deliver(rem[:total])
		consumed += total
	}
}

type channelBuf struct {
	data    []byte
	pending bool
}

// Worker owns per-channel buffers and a pending-sockets deque, draining the
// deque on its own goroutine per §4.5's "run() loops: wait on the deque".
type Worker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	bufs     map[int]*channelBuf
	pending  []int
	initial  int
	cap      int
	framing  Framing
	deliver  func(fd int, frame []byte)
	overflow func(fd int)
	stopped  bool
	done     chan struct{}
}

// New starts a Worker goroutine. initialSize is the starting per-channel
// buffer size (512 B per §4.5); capSize is the DoS-mitigating cap (§9,
// default 1 MiB, 0 disables the cap). deliver receives one fully-framed
// message at a time; overflow is called (instead of deliver) when a
// channel's buffer would exceed capSize.
func New(initialSize, capSize int, framing Framing, deliver func(fd int, frame []byte), overflow func(fd int)) *Worker {
	w := &Worker{
		bufs:     make(map[int]*channelBuf),
		initial:  initialSize,
		cap:      capSize,
		framing:  framing,
		deliver:  deliver,
		overflow: overflow,
		done:     make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// AddData copies bytes into fd's growing buffer and re-adds fd to the
// pending deque if not already present.
func (w *Worker) AddData(fd int, p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bufs[fd]
	if !ok {
		size := w.initial
		if size <= 0 {
			size = 512
		}
		b = &channelBuf{data: make([]byte, 0, size)}
		w.bufs[fd] = b
	}

	need := len(b.data) + len(p)
	if w.cap > 0 && need > w.cap {
		delete(w.bufs, fd)
		if w.overflow != nil {
			w.overflow(fd)
		}
		return
	}
	if need > cap(b.data) {
		newCap := max(need, cap(b.data)*2)
		newCap = max(newCap, 512)
		grown := make([]byte, len(b.data), newCap)
		copy(grown, b.data)
		b.data = grown
	}
	b.data = append(b.data, p...)

	if !b.pending {
		b.pending = true
		w.pending = append(w.pending, fd)
		w.cond.Signal()
	}
}

// RemoveChannel drops fd's buffer, e.g. on channel close.
func (w *Worker) RemoveChannel(fd int) {
	w.mu.Lock()
	delete(w.bufs, fd)
	w.mu.Unlock()
}

func (w *Worker) run() {
	for {
		w.mu.Lock()
		for len(w.pending) == 0 && !w.stopped {
			w.cond.Wait()
		}
		if w.stopped {
			w.mu.Unlock()
			close(w.done)
			return
		}
		fd := w.pending[0]
		w.pending = w.pending[1:]
		b, ok := w.bufs[fd]
		if !ok {
			w.mu.Unlock()
			continue
		}
		b.pending = false
		data := b.data
		w.mu.Unlock()

		consumed := w.framing.Process(data, func(frame []byte) {
			w.deliver(fd, frame)
		})

		w.mu.Lock()
		if b2, ok := w.bufs[fd]; ok && b2 == b {
			// Compact from b.data, not the data snapshot: AddData may have
			// appended more bytes while Process ran without the lock.
			remaining := copy(b.data, b.data[consumed:])
			b.data = b.data[:remaining]
			// Per §4.5: once Process stops for want of a full frame, the
			// channel leaves the pending deque until the next AddData
			// re-adds it — it must not be re-enqueued here, or a
			// persistently-partial frame would spin the worker goroutine.
		}
		w.mu.Unlock()
	}
}

// Stop halts the worker goroutine.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.cond.Broadcast()
	w.mu.Unlock()
	<-w.done
}
