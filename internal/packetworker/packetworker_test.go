package packetworker

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSingleByteFraming(t *testing.T) {
	var mu sync.Mutex
	var got []byte

	w := New(512, 0, SingleByteFraming{}, func(fd int, frame []byte) {
		mu.Lock()
		got = append(got, frame...)
		mu.Unlock()
	}, nil)
	defer w.Stop()

	w.AddData(1, []byte{0x01, 0x02, 0x03})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func buildFrame(header byte, payload []byte) []byte {
	buf := make([]byte, 1+2+len(payload))
	buf[0] = header
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[3:], payload)
	return buf
}

func TestVarLenFramingAcrossFragments(t *testing.T) {
	var mu sync.Mutex
	var frames [][]byte

	w := New(512, 0, VarLenFraming{HeaderSize: 1, LengthSize: 2}, func(fd int, frame []byte) {
		mu.Lock()
		cp := append([]byte(nil), frame...)
		frames = append(frames, cp)
		mu.Unlock()
	}, nil)
	defer w.Stop()

	payload := make([]byte, 18)
	for i := range payload {
		payload[i] = byte(i)
	}
	full := buildFrame(0x0A, payload)

	// deliver in segments of 4/7/10 bytes, per the spec's scenario 3
	w.AddData(1, full[0:4])
	w.AddData(1, full[4:11])
	w.AddData(1, full[11:])

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, full, frames[0])
}

func TestBufferCapExceededTriggersOverflow(t *testing.T) {
	var mu sync.Mutex
	overflowed := false

	w := New(8, 16, VarLenFraming{HeaderSize: 1, LengthSize: 2}, func(fd int, frame []byte) {}, func(fd int) {
		mu.Lock()
		overflowed = true
		mu.Unlock()
	})
	defer w.Stop()

	w.AddData(1, make([]byte, 32))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return overflowed
	}, time.Second, time.Millisecond)
}
