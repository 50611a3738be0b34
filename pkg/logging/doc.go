// Package logging provides the process-wide structured logger for
// cronjob-trigger.
//
// It is a thin layer over log/slog that tags every entry with a subsystem
// and keeps printf-style call sites short:
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stdout)
//
//	logging.Info("Watcher", "Watching directory: %s", dir)
//	logging.Debug("Trigger", "ADD %s", path)
//	logging.Warn("Watcher", "Skipping unreadable path %s", path)
//	logging.Error("Launcher", err, "Error creating Job from CronJob")
//
// # Levels
//
// DEBUG enables the raw filesystem event stream and the rendered Job
// manifest. INFO carries the operational messages (startup, qualifying
// changes, created Jobs). Failures of a Job launch are logged at ERROR
// level but never stop the process.
//
// # Formats
//
// Output is slog text by default; FormatJSON switches to the slog JSON
// handler for log aggregation.
//
// # client-go
//
// Init also routes klog, which client-go uses internally, through the same
// handler so that warnings from the Kubernetes client are not printed in a
// second, differently formatted stream.
package logging
