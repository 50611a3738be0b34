package trigger

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cronjob-trigger/internal/testing/mock"
)

func TestDebouncer_FiresOnceAfterQuietPeriod(t *testing.T) {
	clk := mock.NewMockClock(time.Time{})
	var fired atomic.Int32
	d := NewDebouncer(clk, time.Second, func() { fired.Add(1) })

	d.Trigger()
	assert.True(t, d.Pending())

	clk.Advance(999 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	clk.Advance(time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, d.Pending(), "firing clears the handle")

	clk.Advance(time.Hour)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncer_TriggerResetsWindow(t *testing.T) {
	clk := mock.NewMockClock(time.Time{})
	var fired atomic.Int32
	d := NewDebouncer(clk, time.Second, func() { fired.Add(1) })

	d.Trigger()
	clk.Advance(800 * time.Millisecond)
	d.Trigger()
	clk.Advance(800 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 1, clk.Pending(), "only one scheduled call at a time")

	clk.Advance(200 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	clk := mock.NewMockClock(time.Time{})
	var fired atomic.Int32
	d := NewDebouncer(clk, time.Second, func() { fired.Add(1) })

	d.Trigger()
	d.Stop()
	assert.False(t, d.Pending())

	clk.Advance(time.Minute)
	assert.Equal(t, int32(0), fired.Load())

	// Stopping does not disarm future triggers.
	d.Trigger()
	clk.Advance(time.Second)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncer_RealClock(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(nil, 20*time.Millisecond, func() { fired <- struct{}{} })

	d.Trigger()
	d.Trigger()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case <-fired:
		t.Fatal("debouncer fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPathCache(t *testing.T) {
	c := NewPathCache()
	assert.False(t, c.Cached("/a"))

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	c.Record("/a", now)
	assert.True(t, c.Cached("/a"))

	seen, ok := c.LastSeen("/a")
	assert.True(t, ok)
	assert.Equal(t, now, seen)

	c.Record("/zero", time.Time{})
	assert.False(t, c.Cached("/zero"), "only a positive timestamp counts")
	assert.Equal(t, 2, c.Len())
}
