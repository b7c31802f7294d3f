// Package config provides configuration loading for acpctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for acpctl.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("acpctl")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: ACPCTL_AGENT_PATH, ACPCTL_AUTH_ENABLED, ...
	viper.SetEnvPrefix("ACPCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an acpctl config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper
// from matching the binary "acpctl" (no extension) in the current
// directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".acpctl"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "acpctl"))
		}
	} else {
		paths = append(paths, "/etc/acpctl")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for acpctl.yaml or
// .yml. Returns the full path of the first match, or empty string if none
// found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "acpctl"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the config keys a user is likely to want to
// override without a config file.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("agent.path")
	_ = viper.BindEnv("agent.name")
	_ = viper.BindEnv("agent.shared_secret")

	_ = viper.BindEnv("auth.enabled")
	_ = viper.BindEnv("auth.shared_secret_hash")

	_ = viper.BindEnv("policy.expression")

	_ = viper.BindEnv("metrics.enabled")
	_ = viper.BindEnv("metrics.addr")

	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// applies SetDefaults and SetDevDefaults, runs Validate, and returns the
// validated ACPCTLConfig.
func LoadConfig() (*ACPCTLConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; continue with env vars and defaults only.
	}

	var cfg ACPCTLConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or an empty string if no config file was found.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
