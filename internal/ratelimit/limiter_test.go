package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireGrantsUpToEffectiveLimit(t *testing.T) {
	l := New(time.Minute, 10) // headroom 0.30 -> effective limit 7
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	for i := 0; i < 7; i++ {
		l.Acquire()
	}
	require.Equal(t, 7, l.CurrentUsage())
	require.Equal(t, 7, l.Capacity())
}

func TestAcquireDropsExpiredGrants(t *testing.T) {
	l := New(100*time.Millisecond, 10).WithHeadroom(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cur := base
	l.now = func() time.Time { return cur }

	for i := 0; i < 10; i++ {
		l.Acquire()
	}
	require.Equal(t, 10, l.CurrentUsage())

	cur = base.Add(200 * time.Millisecond)
	l.Acquire()
	require.Equal(t, 1, l.CurrentUsage())
}

func TestCapacityReflectsHeadroom(t *testing.T) {
	l := New(time.Second, 100).WithHeadroom(0.5)
	require.Equal(t, 50, l.Capacity())
}
