package timeoutmgr

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFiresInNonDecreasingOrder(t *testing.T) {
	var mu sync.Mutex
	var fired []int

	m := New(func(fd int) {
		mu.Lock()
		fired = append(fired, fd)
		mu.Unlock()
	})
	defer m.Stop()

	base := time.Now().Add(30 * time.Millisecond)
	m.Insert(3, base.Add(30*time.Millisecond))
	m.Insert(1, base)
	m.Insert(2, base.Add(10*time.Millisecond))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, fired)
}

func TestCancelBeforeDeadlinePreventsFiring(t *testing.T) {
	var mu sync.Mutex
	fired := false

	m := New(func(fd int) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	defer m.Stop()

	tok := m.Insert(1, time.Now().Add(50*time.Millisecond))
	require.True(t, m.Cancel(tok))

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.False(t, fired)
}

func TestDoubleFireGuard(t *testing.T) {
	m := New(func(fd int) {})
	defer m.Stop()
	tok := m.Insert(1, time.Now().Add(-time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	require.False(t, m.Cancel(tok))
}
