// Package config loads and validates the agent's INI-style configuration
// file into a typed struct, in the same style the ingest config loader in
// the corpus uses gcfg for: parse into a typed struct, then run an explicit
// Verify step that turns scalar-kind and range problems into one typed
// error.
package config

import (
	"os"

	"github.com/gravwell/gcfg"

	"github.com/blin/zabby-agent/internal/errors"
)

// Agent is the top-level [Agent] section of the configuration file.
type Agent struct {
	ListenHost     string
	ListenPort     int
	ItemFiles      []string
	LoggingConf    string
	PidFile        string
	ErrorLog       string
	ReloadOnChange bool
	MetricsListen  string
}

// Config is the root of the parsed configuration file.
type Config struct {
	Agent Agent
}

// Load reads and parses the INI file at path, then validates it. A parse
// or validation failure is always a *errors.ConfigError.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := gcfg.ReadFileInto(&cfg, path); err != nil {
		return nil, &errors.ConfigError{
			Field:   "file",
			Value:   path,
			Message: "failed to parse configuration file",
			Err:     err,
		}
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Verify validates required fields and scalar ranges. It never mutates
// the receiver.
func (c *Config) Verify() error {
	if c.Agent.ListenHost == "" {
		return &errors.ConfigError{Field: "ListenHost", Message: "must not be empty"}
	}
	if c.Agent.ListenPort < 1 || c.Agent.ListenPort > 65535 {
		return &errors.ConfigError{
			Field: "ListenPort", Value: c.Agent.ListenPort,
			Message: "must be an integer in [1,65535]",
		}
	}
	for _, p := range c.Agent.ItemFiles {
		if _, err := os.Stat(p); err != nil {
			return &errors.ConfigError{
				Field: "ItemFiles", Value: p,
				Message: "item file is not readable", Err: err,
			}
		}
	}
	return nil
}
