// Package app wires the cronjob-trigger components together and runs them.
//
// NewApplication initializes logging from the configuration and builds the
// trigger chain (watcher, pipeline, launcher) without starting anything.
// Run starts the watcher, logs "Watching directory: ...", feeds events to
// the pipeline from a single goroutine so that delivery order is kept, and
// blocks until its context is cancelled.
//
// Failures to start watching are returned from Run and end the process.
// Everything that can go wrong later, such as unreadable subdirectories or
// failed Job launches, is logged and does not stop the application.
//
// When running under systemd with Type=notify, READY=1 is sent once the
// initial scan has completed and STOPPING=1 at shutdown.
package app
