package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Load reads the configuration from the environment. Values from the dotenv
// file named by ENV_FILE (or ./.env when present) fill in variables that are
// not set in the real environment.
func Load() (*Config, error) {
	return LoadWithEnvFile(os.Getenv(EnvEnvFile))
}

// LoadWithEnvFile is Load with an explicit dotenv path. An empty path means
// the optional default file. A fresh viper instance is used on every call so
// that loading is safe for concurrent tests.
func LoadWithEnvFile(envFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := configureEnvFile(v, envFile); err != nil {
		return nil, err
	}

	configureEnv(v)

	return fromViper(v)
}

// configureEnvFile registers the dotenv values as defaults, which keeps the
// real environment authoritative without mutating the process environment.
func configureEnvFile(v *viper.Viper, envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	values, err := godotenv.Read(envFile)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	for key, value := range values {
		v.SetDefault(key, value)
	}
	return nil
}

// configureEnv sets up environment variable support. Keys are the variable
// names themselves; there is no prefix.
func configureEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.AllowEmptyEnv(false)
}

// fromViper converts and validates every variable, collecting all problems
// so the operator sees them in one go.
func fromViper(v *viper.Viper) (*Config, error) {
	var errs ValidationErrors

	for _, key := range requiredKeys {
		var ve ValidationError
		if err := ValidateRequired(key, v.GetString(key)); errors.As(err, &ve) {
			errs = append(errs, ve)
		}
	}

	cfg := &Config{
		Watch: WatchConfig{
			Dir:   strings.TrimSpace(v.GetString(EnvWatchDir)),
			Regex: v.GetString(EnvWatchRegex),
		},
		Kubernetes: KubernetesConfig{
			APIServer: strings.TrimRight(strings.TrimSpace(v.GetString(EnvAPIServer)), "/"),
			Token:     strings.TrimSpace(v.GetString(EnvToken)),
			Namespace: strings.TrimSpace(v.GetString(EnvNamespace)),
			CronJob:   strings.TrimSpace(v.GetString(EnvCronJob)),
			CAFile:    strings.TrimSpace(v.GetString(EnvCAFile)),
		},
		LogFormat: strings.ToLower(strings.TrimSpace(v.GetString(EnvLogFormat))),
	}

	if cfg.Watch.Regex != "" {
		pattern, err := regexp.Compile(cfg.Watch.Regex)
		if err != nil {
			errs.Add(EnvWatchRegex, fmt.Sprintf("invalid regular expression: %v", err), cfg.Watch.Regex)
		}
		cfg.Watch.Pattern = pattern
	}

	if cfg.Kubernetes.APIServer != "" {
		if err := validateAPIServer(cfg.Kubernetes.APIServer); err != nil {
			errs.Add(EnvAPIServer, err.Error(), cfg.Kubernetes.APIServer)
		}
	}

	if cfg.Kubernetes.CAFile != "" {
		if _, err := os.Stat(cfg.Kubernetes.CAFile); err != nil {
			errs.Add(EnvCAFile, fmt.Sprintf("cannot read CA file: %v", err), cfg.Kubernetes.CAFile)
		}
	}

	// Decimal only: cast would read "010" as octal and "0x10" as hex.
	rawDebounce := strings.TrimSpace(v.GetString(EnvDebounce))
	millis, err := strconv.ParseInt(rawDebounce, 10, 64)
	switch {
	case err != nil:
		errs.Add(EnvDebounce, "must be a whole number of milliseconds", rawDebounce)
	case millis < 0:
		errs.Add(EnvDebounce, "must not be negative", millis)
	default:
		cfg.Watch.Debounce = time.Duration(millis) * time.Millisecond
	}

	cfg.Watch.Cache = parseBool(v, EnvCache, &errs)
	cfg.Watch.IgnoreInitial = parseBool(v, EnvIgnoreInitial, &errs)
	cfg.Kubernetes.Insecure = parseBool(v, EnvInsecure, &errs)
	cfg.Debug = parseBool(v, EnvDebug, &errs)

	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs.Add(EnvLogFormat, "must be one of text, json", cfg.LogFormat)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return cfg, nil
}

func parseBool(v *viper.Viper, key string, errs *ValidationErrors) bool {
	raw := v.Get(key)
	b, err := cast.ToBoolE(raw)
	if err != nil {
		errs.Add(key, "must be a boolean (true/false/1/0)", raw)
		return false
	}
	return b
}

func validateAPIServer(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}
