// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

// Package console holds the configuration, output rendering and logging of the rcon command.
package console

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/schultz-is/rcon-go/v2"
)

// Environment variables consulted by [Config.ApplyEnv].
const (
	EnvHost     = "RCON_HOST"
	EnvPort     = "RCON_PORT"
	EnvPassword = "RCON_PASS"
	EnvTimeout  = "RCON_TIMEOUT"
)

// DefaultHost is the server address used when none is configured.
const DefaultHost = "localhost"

// MaxWait is the longest pause allowed between commands.
const MaxWait = 600 * time.Second

// Config holds the settings of the rcon command. Values are layered: defaults, then a YAML file, then
// the environment, then command line flags.
type Config struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`

	// Wait is the pause between consecutive commands.
	Wait time.Duration `yaml:"wait"`

	Silent  bool   `yaml:"silent"`
	NoColor bool   `yaml:"no_color"`
	Raw     bool   `yaml:"raw"`
	LogFile string `yaml:"log_file"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Port:    rcon.DefaultPort,
		Timeout: rcon.DefaultClientTimeout,
	}
}

// LoadFile overlays the YAML document at path onto c. Keys missing from the file keep their current
// values; unknown keys are an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the RCON_* environment variables found by lookup onto c. [os.LookupEnv] is the
// usual lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.Password = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = timeout
	}
	return nil
}

// Validate checks the settings that the client itself doesn't.
func (c Config) Validate() error {
	if c.Wait < 0 || c.Wait > MaxWait {
		return fmt.Errorf("wait %s is out of range (0-%s)", c.Wait, MaxWait)
	}
	return nil
}

// ClientConfig returns the [rcon.ClientConfig] for c.
func (c Config) ClientConfig(logger *zap.Logger) rcon.ClientConfig {
	return rcon.ClientConfig{
		Host:     c.Host,
		Port:     c.Port,
		Password: c.Password,
		Timeout:  c.Timeout,
		Logger:   logger,
	}
}

// RenderMode returns how command output should be rendered under c.
func (c Config) RenderMode() RenderMode {
	switch {
	case c.Raw:
		return RenderRaw
	case c.NoColor:
		return RenderPlain
	}
	return RenderANSI
}
