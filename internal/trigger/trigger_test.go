package trigger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronjob-trigger/internal/testing/mock"
	"cronjob-trigger/internal/watcher"
	"cronjob-trigger/pkg/logging"
)

func init() {
	logging.Init(logging.LevelDebug, logging.FormatText, nil)
}

// fakeLauncher counts launches and can block or fail them.
type fakeLauncher struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}
	start chan struct{}
}

func (f *fakeLauncher) Launch(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	gate, start, err := f.gate, f.start, f.err
	f.mu.Unlock()

	if start != nil {
		start <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("nightly-manual-%05d", n), nil
}

func (f *fakeLauncher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const debounce = 5 * time.Second

func newTestPipeline(t *testing.T, cacheEnabled bool, l Launcher) (*Pipeline, *mock.MockClock) {
	t.Helper()
	clk := mock.NewMockClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	p := New(Options{
		Pattern:      regexp.MustCompile(`\.csv$`),
		CacheEnabled: cacheEnabled,
		Debounce:     debounce,
		Launcher:     l,
		Clock:        clk,
	})
	t.Cleanup(func() {
		p.Stop()
		p.Wait()
	})
	return p, clk
}

func TestOnChange_PatternFilter(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/data/report.csv", true},
		{"/data/nested/dir/report.csv", true},
		{"/data/report.csv.tmp", false},
		{"/data/notes.txt", false},
		{"/data/csv/readme.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, clk := newTestPipeline(t, false, &fakeLauncher{})
			assert.Equal(t, tt.expected, p.OnChange(tt.path))
			assert.Equal(t, tt.expected, clk.Pending() == 1)
		})
	}
}

func TestOnChange_UnanchoredMatch(t *testing.T) {
	clk := mock.NewMockClock(time.Time{})
	p := New(Options{
		Pattern:  regexp.MustCompile(`incoming`),
		Debounce: time.Second,
		Launcher: &fakeLauncher{},
		Clock:    clk,
	})
	defer p.Stop()

	assert.True(t, p.OnChange("/srv/incoming/a.bin"))
}

func TestOnChange_CacheSuppressesRepeats(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, true, l)

	assert.True(t, p.OnChange("/data/a.csv"))
	clk.Advance(debounce)
	p.Wait()
	require.Equal(t, 1, l.Calls())

	// The same path never qualifies again, however much later.
	clk.Advance(24 * time.Hour)
	assert.False(t, p.OnChange("/data/a.csv"))
	clk.Advance(debounce)
	p.Wait()
	assert.Equal(t, 1, l.Calls())

	// Other paths still do.
	assert.True(t, p.OnChange("/data/b.csv"))
	clk.Advance(debounce)
	p.Wait()
	assert.Equal(t, 2, l.Calls())

	s := p.Metrics().Summary()
	assert.Equal(t, int64(1), s.CacheSkips)
	assert.Equal(t, int64(2), s.ChangesQualified)
	assert.Equal(t, 2, p.Cache().Len())
}

func TestOnChange_CacheDisabledRearms(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, false, l)

	for i := 0; i < 3; i++ {
		assert.True(t, p.OnChange("/data/a.csv"))
		clk.Advance(debounce)
		p.Wait()
	}
	assert.Equal(t, 3, l.Calls())

	// Entries are still recorded even though they are not consulted.
	seen, ok := p.Cache().LastSeen("/data/a.csv")
	assert.True(t, ok)
	assert.False(t, seen.IsZero())
}

func TestDebounce_BurstProducesOneLaunch(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, true, l)

	for i := 0; i < 10; i++ {
		require.True(t, p.OnChange(fmt.Sprintf("/data/file-%d.csv", i)))
		clk.Advance(debounce - time.Second)
	}
	p.Wait()
	assert.Equal(t, 0, l.Calls(), "window keeps sliding while changes arrive")

	// The launch happens one full interval after the last change.
	clk.Advance(time.Second - time.Millisecond)
	p.Wait()
	assert.Equal(t, 0, l.Calls())

	clk.Advance(time.Millisecond)
	p.Wait()
	assert.Equal(t, 1, l.Calls())

	s := p.Metrics().Summary()
	assert.Equal(t, int64(1), s.Firings)
	assert.Equal(t, int64(1), s.LaunchSuccesses)
	assert.Equal(t, "nightly-manual-00001", s.LastJobName)
}

func TestDebounce_RepeatedPathWithCacheDisabled(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, false, l)

	for i := 0; i < 5; i++ {
		p.OnChange("/data/a.csv")
		clk.Advance(time.Second)
	}
	clk.Advance(debounce)
	p.Wait()

	assert.Equal(t, 1, l.Calls())
}

func TestHandleEvent_OnlyAddAndChangeQualify(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, false, l)

	p.HandleEvent(watcher.Event{Kind: watcher.KindRemoved, Path: "/data/a.csv"})
	p.HandleEvent(watcher.Event{Kind: watcher.KindDirAdded, Path: "/data/dir.csv"})
	p.HandleEvent(watcher.Event{Kind: watcher.KindDirRemoved, Path: "/data/dir.csv"})
	assert.Equal(t, 0, clk.Pending())

	p.HandleEvent(watcher.Event{Kind: watcher.KindModified, Path: "/data/a.csv"})
	assert.Equal(t, 1, clk.Pending())

	p.HandleEvent(watcher.Event{Kind: watcher.KindAdded, Path: "/data/b.csv"})
	clk.Advance(debounce)
	p.Wait()

	assert.Equal(t, 1, l.Calls())
	assert.Equal(t, int64(5), p.Metrics().Summary().EventsObserved)
}

func TestLaunchFailure_PipelineStaysArmed(t *testing.T) {
	l := &fakeLauncher{err: errors.New("failed to fetch CronJob: 500 etcdserver: request timed out")}
	p, clk := newTestPipeline(t, false, l)

	p.OnChange("/data/a.csv")
	clk.Advance(debounce)
	p.Wait()

	s := p.Metrics().Summary()
	assert.Equal(t, int64(1), s.LaunchFailures)
	assert.Contains(t, s.LastFailure, "500")

	l.mu.Lock()
	l.err = nil
	l.mu.Unlock()

	p.OnChange("/data/a.csv")
	clk.Advance(debounce)
	p.Wait()

	assert.Equal(t, 2, l.Calls())
	assert.Equal(t, int64(1), p.Metrics().Summary().LaunchSuccesses)
}

func TestInFlight_DeferredFiringsCollapseIntoOneFollowUp(t *testing.T) {
	gate := make(chan struct{})
	start := make(chan struct{}, 4)
	l := &fakeLauncher{gate: gate, start: start}
	p, clk := newTestPipeline(t, false, l)

	p.OnChange("/data/a.csv")
	clk.Advance(debounce)
	<-start // first launch is running and blocked

	// Two more windows close while it is in flight.
	p.OnChange("/data/b.csv")
	clk.Advance(debounce)
	p.OnChange("/data/c.csv")
	clk.Advance(debounce)

	assert.Equal(t, 1, l.Calls())
	assert.Equal(t, int64(2), p.Metrics().Summary().DeferredFirings)

	close(gate)
	<-start // exactly one follow-up
	p.Wait()

	assert.Equal(t, 2, l.Calls())
	assert.Equal(t, int64(3), p.Metrics().Summary().Firings)
}

func TestStop_CancelsPendingLaunch(t *testing.T) {
	l := &fakeLauncher{}
	p, clk := newTestPipeline(t, false, l)

	p.OnChange("/data/a.csv")
	p.Stop()
	clk.Advance(debounce)
	p.Wait()

	assert.Equal(t, 0, l.Calls())
}

func TestFire_DoesNotBlockOnLaunch(t *testing.T) {
	gate := make(chan struct{})
	l := &fakeLauncher{gate: gate}
	p, clk := newTestPipeline(t, false, l)
	defer close(gate)

	p.OnChange("/data/a.csv")

	done := make(chan struct{})
	go func() {
		clk.Advance(debounce)
		// Event delivery keeps working while the launch is blocked.
		p.OnChange("/data/b.csv")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event handling blocked on an in-flight launch")
	}
}
