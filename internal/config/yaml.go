// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	applog "specvis/internal/log"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// LoadConfig loads configuration like Load and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from the YAML file at path. If path is empty,
// the working directory and the user config directory are searched for
// config.yaml, falling back to built-in defaults when neither exists.
// Environment overrides are applied after the file. The result is not
// validated, so callers can layer further settings before calling Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{configFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "specvis", configFileName))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// applyEnvOverrides applies ENV_* variables on top of the file settings.
// Malformed values are reported and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}

	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(val)
		applog.Infof("Config: Overriding log_level from env: %s", c.LogLevel)
	}

	// ENV_MONITOR
	if val, ok := os.LookupEnv("ENV_MONITOR"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Audio.Monitor = bVal
			applog.Infof("Config: Overriding audio.monitor from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_MONITOR=%q: %v", val, err)
		}
	}

	// ENV_DEVICE
	if val, ok := os.LookupEnv("ENV_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = iVal
			applog.Infof("Config: Overriding audio.input_device from env: %d", iVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEVICE=%q: %v", val, err)
		}
	}

	// ENV_FPS
	if val, ok := os.LookupEnv("ENV_FPS"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.FPS = iVal
			applog.Infof("Config: Overriding fps from env: %d", iVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_FPS=%q: %v", val, err)
		}
	}
}
