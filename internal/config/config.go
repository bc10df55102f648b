// Package config loads the server configuration from YAML, the environment and flags
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/moband/kaf/pkg/logger"
)

// DefaultMaxFrameBytes bounds the declared length of a request frame
const DefaultMaxFrameBytes = 100 * 1024 * 1024

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the Kafka listener
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxFrameBytes int    `yaml:"max_frame_bytes"`
	// MaxClients caps concurrent connections. Zero means unlimited.
	MaxClients int `yaml:"max_clients"`
	// IdleTimeout closes a connection that sends nothing for this long. Zero disables it.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// WriteTimeout bounds writing one response. Zero disables it.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig configures pkg/logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the admin HTTP listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          9092,
			MaxFrameBytes: DefaultMaxFrameBytes,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from KAFKA_HOST, KAFKA_PORT and KAFKA_LOG_LEVEL
func (c *Config) applyEnv() error {
	if host := os.Getenv("KAFKA_HOST"); host != "" {
		c.Server.Host = host
	}
	if portStr := os.Getenv("KAFKA_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return errors.Wrapf(err, "KAFKA_PORT %q", portStr)
		}
		c.Server.Port = port
	}
	if level := os.Getenv("KAFKA_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	return nil
}

// ListenAddress returns the full listen address as a string
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LoggerOptions converts the log section into pkg/logger options
func (c *Config) LoggerOptions() (logger.Options, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{Level: level, JSON: strings.EqualFold(c.Log.Format, "json")}, nil
}

// ValidationError holds one or more configuration validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0])
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err)
	}
	return b.String()
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range 0-65535", c.Server.Port))
	}
	if c.Server.MaxFrameBytes < 0 {
		errs = append(errs, fmt.Sprintf("server.max_frame_bytes %d must not be negative", c.Server.MaxFrameBytes))
	}
	if c.Server.MaxClients < 0 {
		errs = append(errs, fmt.Sprintf("server.max_clients %d must not be negative", c.Server.MaxClients))
	}
	if c.Server.IdleTimeout < 0 {
		errs = append(errs, "server.idle_timeout must not be negative")
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.addr %q: %v", c.Metrics.Addr, err))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
