package config

import (
	"github.com/spf13/viper"
)

const (
	// DefaultDebounceMillis is the quiet period used when DEBOUNCE is unset.
	DefaultDebounceMillis = 5000

	// DefaultEnvFile is loaded when present and ENV_FILE is unset.
	DefaultEnvFile = ".env"

	// DefaultLogFormat is the slog text handler.
	DefaultLogFormat = "text"
)

// setDefaults registers default values for every optional variable.
func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvDebounce, DefaultDebounceMillis)
	v.SetDefault(EnvCache, true)
	v.SetDefault(EnvDebug, false)
	v.SetDefault(EnvIgnoreInitial, false)
	v.SetDefault(EnvInsecure, false)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)
}
