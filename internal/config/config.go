// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the sshproxy configuration. Values are layered:
// built-in defaults, then the YAML config file, then SSHPROXY_* environment
// variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the resolved configuration for a run. The secret is never
// part of the configuration; it is captured interactively.
type Config struct {
	User      string `mapstructure:"user" yaml:"user"`
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	SSHDir    string `mapstructure:"ssh_dir" yaml:"ssh_dir"`
	Language  string `mapstructure:"language" yaml:"language"`
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "sshproxy")
		default: // Linux, macOS, etc.
			configDir = "/etc/sshproxy"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "sshproxy")
	}

	return filepath.Join(configDir, "sshproxy.yaml"), nil
}

// LoadConfig resolves the layered configuration for the given command. When
// no config file exists the resolved defaults are still returned, together
// with the viper.ConfigFileNotFoundError so the caller can write one.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additional_config_file_path *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths
	v.SetConfigName("sshproxy")
	v.SetConfigType("yaml")

	// 3. Add explicit config file path if provided via --config flag.
	// This has the highest precedence for file-based configuration.
	if additional_config_file_path != nil {
		v.SetConfigFile(*additional_config_file_path)
	}

	// 4. Add standard config locations
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for sshproxy.yaml in current dir

	// 5. Read in the primary config file. A missing file is not fatal — the
	// defaults below still apply — but the not-found error is handed back to
	// the caller alongside the resolved config so it can bootstrap a default
	// file on first run.
	var notFoundErr error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		notFoundErr = err
	}

	// 6. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("sshproxy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 7. Command-line flags win over everything else.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	// parse config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, notFoundErr
}

// WriteConfigFile persists the configuration to the user (or system) config
// path so subsequent runs have a file to inspect and edit.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return err
	}

	return nil
}
