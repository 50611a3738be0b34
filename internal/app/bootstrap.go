package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"cronjob-trigger/internal/clock"
	"cronjob-trigger/internal/config"
	"cronjob-trigger/internal/watcher"
	"cronjob-trigger/pkg/logging"
)

// eventBuffer absorbs bursts while the pipeline logs.
const eventBuffer = 256

// Application owns the configured trigger chain for the lifetime of the
// process.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: initialize logging, build the services
//  2. Execution phase: watch until the context is cancelled
type Application struct {
	config   *config.Config
	services *Services
}

// Option customizes NewApplication.
type Option func(*options)

type options struct {
	logOutput io.Writer
	clock     clock.Clock
}

// WithLogOutput sends log output to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithClock replaces the clock used for debouncing.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// NewApplication configures logging and builds the services. cfg must
// already be validated; it is not modified.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	o := options{logOutput: os.Stdout, clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}

	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.Init(appLogLevel, cfg.LogFormat, o.logOutput)

	services, err := InitializeServices(cfg, o.clock)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Run watches the configured directory until ctx is cancelled.
//
// Only a failure to start watching is returned as an error. Job launch
// failures are logged by the pipeline and never end Run. On shutdown
// pending debounces are dropped, launches already in flight are allowed to
// finish, and a summary of the counters is logged.
func (a *Application) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	observer := a.services.Observer
	pipeline := a.services.Pipeline

	events := make(chan watcher.Event, eventBuffer)
	if err := observer.Start(runCtx, events); err != nil {
		logging.Error("Bootstrap", err, "Failed to start watching")
		return fmt.Errorf("failed to start watching %s: %w", a.config.Watch.Dir, err)
	}
	logging.Info("Bootstrap", "Watching directory: %s", a.config.Watch.Dir)

	g, gctx := errgroup.WithContext(runCtx)

	// Single consumer: events reach the pipeline in delivery order.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				pipeline.HandleEvent(ev)
			}
		}
	})

	g.Go(func() error {
		select {
		case <-observer.Ready():
			a.onReady()
		case <-gctx.Done():
		}
		return nil
	})

	err := g.Wait()

	logging.Info("Bootstrap", "Shutting down")
	notifySystemd(daemon.SdNotifyStopping)

	if stopErr := observer.Stop(); stopErr != nil {
		logging.Error("Bootstrap", stopErr, "Failed to stop watcher")
	}
	pipeline.Stop()
	pipeline.Wait()
	a.services.Metrics.LogSummary()

	return err
}

func (a *Application) onReady() {
	watched := a.services.Observer.Watched()
	logging.Debug("Bootstrap", "Initial scan complete, watching %d directories: %s",
		len(watched), strings.Join(watched, ", "))
	notifySystemd(daemon.SdNotifyReady)
}
