package trigger

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"cronjob-trigger/internal/clock"
	"cronjob-trigger/internal/watcher"
	"cronjob-trigger/pkg/logging"
)

// Launcher creates one Job per call and returns its name.
type Launcher interface {
	Launch(ctx context.Context) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	// Pattern selects the paths that count. Matching is unanchored.
	Pattern *regexp.Regexp
	// CacheEnabled makes every path qualify at most once.
	CacheEnabled bool
	// Debounce is the quiet period before a launch.
	Debounce time.Duration
	// Launcher is called once per firing.
	Launcher Launcher
	// Clock defaults to the real clock.
	Clock clock.Clock
	// Metrics defaults to a fresh instance.
	Metrics *Metrics
}

// Pipeline decides which changes count and turns bursts of them into a
// single launch.
//
// The path cache is per path while the debouncer is shared by all paths, so
// any number of distinct qualifying paths arriving within one debounce
// window still produce exactly one launch.
//
// At most one launch runs at a time. A firing that arrives while a launch
// is in flight is deferred; when the running launch finishes one follow-up
// launch runs for all deferred firings.
type Pipeline struct {
	pattern      *regexp.Regexp
	cacheEnabled bool
	launcher     Launcher
	clock        clock.Clock
	metrics      *Metrics
	cache        *PathCache
	debouncer    *Debouncer

	// ctx is handed to launches; it is never cancelled so that a launch,
	// once started, runs to completion.
	ctx context.Context

	mu        sync.Mutex
	launching bool
	deferred  bool
	wg        sync.WaitGroup
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	p := &Pipeline{
		pattern:      opts.Pattern,
		cacheEnabled: opts.CacheEnabled,
		launcher:     opts.Launcher,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
		cache:        NewPathCache(),
		ctx:          context.Background(),
	}
	p.debouncer = NewDebouncer(opts.Clock, opts.Debounce, p.fire)
	return p
}

// Metrics returns the pipeline's counters.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Cache returns the path cache.
func (p *Pipeline) Cache() *PathCache {
	return p.cache
}

// HandleEvent consumes one watcher event. Only add and change events can
// qualify; the others are logged for diagnostics.
func (p *Pipeline) HandleEvent(ev watcher.Event) {
	p.metrics.RecordEvent()

	switch ev.Kind {
	case watcher.KindAdded:
		logging.Debug("Trigger", "ADD %s", ev.Path)
		p.OnChange(ev.Path)
	case watcher.KindModified:
		logging.Debug("Trigger", "CHANGE %s", ev.Path)
		p.OnChange(ev.Path)
	case watcher.KindRemoved:
		logging.Debug("Trigger", "UNLINK %s", ev.Path)
	case watcher.KindDirAdded:
		logging.Debug("Trigger", "ADDDIR %s", ev.Path)
	case watcher.KindDirRemoved:
		logging.Debug("Trigger", "UNLINKDIR %s", ev.Path)
	}
}

// OnChange applies the filter and cache steps to path and, when it
// qualifies, re-arms the debouncer. It reports whether path qualified.
func (p *Pipeline) OnChange(path string) bool {
	if p.pattern == nil || !p.pattern.MatchString(path) {
		p.metrics.RecordPatternMiss()
		return false
	}

	if p.cacheEnabled && p.cache.Cached(path) {
		p.metrics.RecordCacheSkip()
		return false
	}

	p.cache.Record(path, p.clock.Now())
	p.metrics.RecordQualified()
	logging.Info("Trigger", "Change detected in: %s", path)

	p.debouncer.Trigger()
	return true
}

// fire runs when the debounce window closes. It never blocks: the launch
// happens in its own goroutine.
func (p *Pipeline) fire() {
	p.metrics.RecordFiring()
	logging.Info("Trigger", "File change detected. Creating Job...")

	p.mu.Lock()
	if p.launching {
		p.deferred = true
		p.mu.Unlock()
		p.metrics.RecordDeferred()
		logging.Warn("Trigger", "Previous Job launch still in flight; another launch will follow it")
		return
	}
	p.launching = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.launchLoop()
}

func (p *Pipeline) launchLoop() {
	defer p.wg.Done()

	for {
		p.launch()

		p.mu.Lock()
		if !p.deferred {
			p.launching = false
			p.mu.Unlock()
			return
		}
		p.deferred = false
		p.mu.Unlock()
	}
}

// launch performs one launch and reports the outcome. Failures stop here.
func (p *Pipeline) launch() {
	attempt := uuid.New().String()
	logging.Debug("Trigger", "Starting Job launch %s", attempt)

	name, err := p.launcher.Launch(p.ctx)
	if err != nil {
		p.metrics.RecordLaunchFailure(err)
		logging.Error("Trigger", err, "Error creating Job from CronJob (attempt %s)", attempt)
		return
	}

	p.metrics.RecordLaunchSuccess(name)
	logging.Info("Trigger", "Job created from CronJob: %s", name)
}

// Stop cancels a pending debounce. Launches already running are not
// interrupted; use Wait to let them finish.
func (p *Pipeline) Stop() {
	p.debouncer.Stop()
}

// Wait blocks until no launch is running.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
