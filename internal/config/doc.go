// Package config loads the cronjob-trigger configuration.
//
// Configuration comes exclusively from environment variables; there are no
// command line flags and no configuration file beyond an optional dotenv
// file used during development. Values are read once at startup and the
// resulting Config is treated as immutable.
//
// # Variables
//
// Required: WATCH_DIR, WATCH_REGEX, K8S_API_SERVER, K8S_TOKEN,
// K8S_NAMESPACE, K8S_CRONJOB.
//
// Optional: DEBOUNCE (milliseconds, default 5000), CACHE (default true),
// DEBUG (default false), WATCH_IGNORE_INITIAL (default false),
// K8S_CA_FILE, K8S_INSECURE_SKIP_TLS_VERIFY (default false),
// LOG_FORMAT (text or json, default text), ENV_FILE.
//
// # Errors
//
// Every problem found is collected into a ValidationErrors value so that a
// misconfigured deployment reports all missing or malformed variables at
// once. Any validation error is fatal: the caller must not start watching.
package config
