package taskworker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := New(4, 16)
	var count atomic.Int64
	const n = 100
	for i := 0; i < n; i++ {
		ok := p.Submit(Job{FD: i, Run: func() { count.Add(1) }})
		require.True(t, ok)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
	require.EqualValues(t, n, count.Load())
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
	require.False(t, p.Submit(Job{Run: func() {}}))
}
