package config

import (
	"regexp"
	"time"
)

// Environment variable names.
const (
	EnvWatchDir      = "WATCH_DIR"
	EnvWatchRegex    = "WATCH_REGEX"
	EnvAPIServer     = "K8S_API_SERVER"
	EnvToken         = "K8S_TOKEN"
	EnvNamespace     = "K8S_NAMESPACE"
	EnvCronJob       = "K8S_CRONJOB"
	EnvDebounce      = "DEBOUNCE"
	EnvCache         = "CACHE"
	EnvDebug         = "DEBUG"
	EnvIgnoreInitial = "WATCH_IGNORE_INITIAL"
	EnvCAFile        = "K8S_CA_FILE"
	EnvInsecure      = "K8S_INSECURE_SKIP_TLS_VERIFY"
	EnvLogFormat     = "LOG_FORMAT"
	EnvEnvFile       = "ENV_FILE"
)

// requiredKeys lists the variables without which the process must not start,
// in the order they are reported.
var requiredKeys = []string{
	EnvWatchDir,
	EnvWatchRegex,
	EnvAPIServer,
	EnvToken,
	EnvNamespace,
	EnvCronJob,
}

// Config is the immutable process configuration. It is loaded once at
// startup and never modified afterwards.
type Config struct {
	Watch      WatchConfig
	Kubernetes KubernetesConfig

	// Debug enables raw event logging and debug level output.
	Debug bool
	// LogFormat is either "text" or "json".
	LogFormat string
}

// WatchConfig controls the Change Observer and the Trigger Pipeline.
type WatchConfig struct {
	// Dir is the root of the watched tree.
	Dir string
	// Regex is the raw inclusion pattern as configured.
	Regex string
	// Pattern is Regex compiled. Matching is unanchored.
	Pattern *regexp.Regexp
	// Debounce is the quiet period after the last qualifying change.
	Debounce time.Duration
	// Cache suppresses every qualifying event after the first for a path.
	Cache bool
	// IgnoreInitial drops the events produced by the initial scan.
	IgnoreInitial bool
}

// KubernetesConfig identifies the CronJob and how to reach the API server.
type KubernetesConfig struct {
	APIServer string
	Token     string
	Namespace string
	CronJob   string

	// CAFile is an optional PEM bundle used to verify the API server.
	CAFile string
	// Insecure disables TLS verification of the API server.
	Insecure bool
}
