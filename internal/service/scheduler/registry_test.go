package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryReplacesTimerPerUser(t *testing.T) {
	r := NewRegistry()

	var first, second atomic.Int32
	r.Set("u1", 20*time.Millisecond, func() { first.Add(1) })
	r.Set("u1", 20*time.Millisecond, func() { second.Add(1) })
	require.Equal(t, 1, r.Len())

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	require.Zero(t, first.Load())
	require.Zero(t, r.Len())
}

func TestRegistryClearAllMakesFiringANoop(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Int32
	r.Set("u1", 10*time.Millisecond, func() { fired.Add(1) })
	r.Set("u2", 10*time.Millisecond, func() { fired.Add(1) })

	require.Equal(t, 2, r.ClearAll())
	require.Zero(t, r.ClearAll())

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Int32
	r.Set("u1", 10*time.Millisecond, func() { fired.Add(1) })

	at, ok := r.FireAt("u1")
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), at, 50*time.Millisecond)

	require.True(t, r.Cancel("u1"))
	require.False(t, r.Cancel("u1"))

	time.Sleep(40 * time.Millisecond)
	require.Zero(t, fired.Load())

	_, ok = r.FireAt("u1")
	require.False(t, ok)
}
