package app

import (
	"fmt"

	"cronjob-trigger/internal/clock"
	"cronjob-trigger/internal/config"
	"cronjob-trigger/internal/launcher"
	"cronjob-trigger/internal/trigger"
	"cronjob-trigger/internal/watcher"
	"cronjob-trigger/pkg/logging"
)

// Services holds the three components of the trigger chain, wired together:
//
//	Observer (filesystem events) -> Pipeline (filter, cache, debounce) -> Launcher (CronJob -> Job)
type Services struct {
	// Observer watches the configured directory tree.
	Observer *watcher.Observer

	// Pipeline filters and debounces the observer's events.
	Pipeline *trigger.Pipeline

	// Launcher creates Jobs from the configured CronJob.
	Launcher *launcher.Launcher

	// Metrics counts what the pipeline saw and did.
	Metrics *trigger.Metrics
}

// InitializeServices builds the trigger chain from cfg. Nothing is started;
// the filesystem is not touched until Application.Run.
func InitializeServices(cfg *config.Config, clk clock.Clock) (*Services, error) {
	l, err := launcher.New(launcher.Config{
		APIServer: cfg.Kubernetes.APIServer,
		Token:     cfg.Kubernetes.Token,
		Namespace: cfg.Kubernetes.Namespace,
		CronJob:   cfg.Kubernetes.CronJob,
		CAFile:    cfg.Kubernetes.CAFile,
		Insecure:  cfg.Kubernetes.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job launcher: %w", err)
	}
	logging.Debug("Bootstrap", "Job launcher targets CronJob %s on %s", l.CronJob(), cfg.Kubernetes.APIServer)

	metrics := trigger.NewMetrics()
	pipeline := trigger.New(trigger.Options{
		Pattern:      cfg.Watch.Pattern,
		CacheEnabled: cfg.Watch.Cache,
		Debounce:     cfg.Watch.Debounce,
		Launcher:     l,
		Clock:        clk,
		Metrics:      metrics,
	})
	logging.Debug("Bootstrap", "Trigger pipeline: pattern=%q cache=%t debounce=%s",
		cfg.Watch.Regex, cfg.Watch.Cache, cfg.Watch.Debounce)

	observer := watcher.New(cfg.Watch.Dir, watcher.WithIgnoreInitial(cfg.Watch.IgnoreInitial))

	return &Services{
		Observer: observer,
		Pipeline: pipeline,
		Launcher: l,
		Metrics:  metrics,
	}, nil
}
