// Package config layers process_wrapper defaults, an optional config file,
// and PROCESS_WRAPPER_* environment variables. Command-line flags take
// precedence over everything here; see cmd/process_wrapper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/sayrer/rules-rust/internal/debug"
	"github.com/sayrer/rules-rust/internal/ui"
)

// EnvPrefix is prepended to upper-cased keys to form environment variables,
// e.g. max-param-depth is read from PROCESS_WRAPPER_MAX_PARAM_DEPTH.
const EnvPrefix = "PROCESS_WRAPPER"

// ConfigEnvVar names a config file when --config is not given.
const ConfigEnvVar = EnvPrefix + "_CONFIG"

// Keys understood by process_wrapper.
const (
	KeyRequireExplicitUnstableFeatures = "require-explicit-unstable-features"
	KeyRustcOutputFormat               = "rustc-output-format"
	KeyMaxParamDepth                   = "max-param-depth"
	KeyVerbose                         = "verbose"
)

// DefaultMaxParamDepth matches the parameter file expander's built-in limit.
const DefaultMaxParamDepth = 128

var v *viper.Viper

// Initialize sets up the viper instance. configPath names an optional YAML,
// TOML or JSON file; when empty, PROCESS_WRAPPER_CONFIG is consulted. A named
// file that cannot be read is an error. No file is searched for implicitly:
// build actions must stay hermetic.
func Initialize(configPath string) error {
	v = viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// rustc-output-format has no default: IsSet tells configured from absent.
	v.SetDefault(KeyRequireExplicitUnstableFeatures, "")
	v.SetDefault(KeyMaxParamDepth, DefaultMaxParamDepth)
	v.SetDefault(KeyVerbose, false)

	if configPath == "" {
		configPath = os.Getenv(ConfigEnvVar)
	}
	if configPath == "" {
		return nil
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configPath, err)
	}
	debug.Logf("loaded config from %s\n", v.ConfigFileUsed())
	return nil
}

// ResetForTesting drops the viper instance so the next Initialize starts
// clean.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the loaded config file, or "" if none.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// IsSet reports whether key has a value from any source, defaults included.
// An empty environment variable does not count.
func IsSet(key string) bool {
	if v == nil {
		return false
	}
	return v.IsSet(key)
}

// LogOverride reports, in verbose mode, that a command-line flag shadowed a
// configured value.
func LogOverride(key string, flagValue interface{}) {
	if !IsSet(key) {
		return
	}
	configured := fmt.Sprint(v.Get(key))
	if configured == "" || configured == fmt.Sprint(flagValue) {
		return
	}
	debug.Logf("%s\n", ui.RenderMuted(fmt.Sprintf("--%s=%v overrides configured value %s", key, flagValue, configured)))
}
