// Package config loads and saves ravencore's on-disk configuration. It is
// an external collaborator per SPEC_FULL.md §6 ("Ambient — configuration"):
// the core never reads it directly, only the PTY-launch and renderer-demo
// collaborators do.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root of the on-disk TOML document.
type Config struct {
	Theme string     `toml:"theme"`
	Shell ShellConfig `toml:"shell"`
}

// ShellConfig selects and customizes the PTY-launched shell.
type ShellConfig struct {
	Path          string            `toml:"path"`
	SourceRC      bool              `toml:"source_rc"`
	AdditionalEnv map[string]string `toml:"additional_env"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Theme: "raven-blue",
		Shell: ShellConfig{
			SourceRC:      true,
			AdditionalEnv: make(map[string]string),
		},
	}
}

// GetConfigPath returns the path to the TOML config file, creating its
// parent directory if necessary.
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ravencore.toml"
	}
	configDir := filepath.Join(homeDir, ".config", "raven-core")
	os.MkdirAll(configDir, 0755)
	return filepath.Join(configDir, "config.toml")
}

// Load reads the TOML config file, returning defaults if none exists.
func Load() (*Config, error) {
	configPath := GetConfigPath()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	if cfg.Shell.AdditionalEnv == nil {
		cfg.Shell.AdditionalEnv = make(map[string]string)
	}
	return cfg, nil
}

// Save writes the configuration to disk as TOML.
func (c *Config) Save() error {
	configPath := GetConfigPath()
	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// GetAvailableShells returns a list of available shells on the system.
func GetAvailableShells() []string {
	shells := []string{}
	possibleShells := []string{
		"/bin/bash", "/usr/bin/bash",
		"/bin/zsh", "/usr/bin/zsh",
		"/bin/fish", "/usr/bin/fish",
		"/bin/sh", "/usr/bin/sh",
		"/bin/dash", "/usr/bin/dash",
		"/bin/tcsh", "/usr/bin/tcsh",
		"/bin/ksh", "/usr/bin/ksh",
	}

	seen := make(map[string]bool)
	for _, shell := range possibleShells {
		if _, err := os.Stat(shell); err == nil {
			base := filepath.Base(shell)
			if !seen[base] {
				seen[base] = true
				shells = append(shells, shell)
			}
		}
	}
	return shells
}

// WriteInitScript writes a small shell-init script into the config
// directory and returns its path (ptyio.NewPtySession uses it as a bash
// --rcfile/BASH_ENV target; the script sources ~/.bashrc only when
// Shell.SourceRC is set). Returns an error if the file can't be written; the caller
// treats that as non-fatal.
func (c *Config) WriteInitScript() (string, error) {
	configDir := filepath.Dir(GetConfigPath())
	scriptPath := filepath.Join(configDir, "init.sh")

	var b []byte
	b = append(b, "# generated by ravencore, do not edit\n"...)
	for k, v := range c.Shell.AdditionalEnv {
		b = append(b, fmt.Sprintf("export %s=%q\n", k, v)...)
	}
	if c.Shell.SourceRC {
		b = append(b, "[ -f \"$HOME/.bashrc\" ] && source \"$HOME/.bashrc\"\n"...)
	}

	if err := os.WriteFile(scriptPath, b, 0644); err != nil {
		return "", err
	}
	return scriptPath, nil
}
