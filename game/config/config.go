package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownFormat  = errors.New("unknown configuration format")
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Ngrok     NgrokConfig     `toml:"ngrok" yaml:"ngrok"`
}

type ServerConfig struct {
	Addr             string        `toml:"addr" yaml:"addr"`
	ReadLimit        int64         `toml:"read_limit" yaml:"read_limit"`               // max inbound message bytes
	WriteWait        time.Duration `toml:"write_wait" yaml:"write_wait"`               // per-frame write deadline
	HandshakeTimeout time.Duration `toml:"handshake_timeout" yaml:"handshake_timeout"` // wait for the join selector
	ChannelBuffer    int           `toml:"channel_buffer" yaml:"channel_buffer"`       // inbound frames buffered per connection
}

type SchedulerConfig struct {
	LobbyTick time.Duration `toml:"lobby_tick" yaml:"lobby_tick"` // waiting-lobby sweep interval
	GameTick  time.Duration `toml:"game_tick" yaml:"game_tick"`   // per-game update interval
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // json or console
}

type NgrokConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	AuthToken string `toml:"authtoken" yaml:"authtoken"`
	Domain    string `toml:"domain" yaml:"domain"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

// Load reads path on top of the defaults. The format is picked from the
// extension: .toml, .yaml or .yml. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Decode(data, formatOf(path), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals data in the given format ("toml" or "yaml") into cfg.
// Keys absent from data keep their current values.
func Decode(data []byte, format string, cfg *Config) error {
	switch format {
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return strings.TrimPrefix(filepath.Ext(path), ".")
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is empty")
	}
	if c.Server.ReadLimit <= 0 {
		problems = append(problems, "server.read_limit must be positive")
	}
	if c.Server.WriteWait <= 0 {
		problems = append(problems, "server.write_wait must be positive")
	}
	if c.Server.HandshakeTimeout <= 0 {
		problems = append(problems, "server.handshake_timeout must be positive")
	}
	if c.Server.ChannelBuffer <= 0 {
		problems = append(problems, "server.channel_buffer must be positive")
	}
	if c.Scheduler.LobbyTick <= 0 {
		problems = append(problems, "scheduler.lobby_tick must be positive")
	}
	if c.Scheduler.GameTick <= 0 {
		problems = append(problems, "scheduler.game_tick must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not json or console", c.Logging.Format))
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		problems = append(problems, "ngrok.authtoken is required when ngrok is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			ReadLimit:        4096,
			WriteWait:        10 * time.Second,
			HandshakeTimeout: 30 * time.Second,
			ChannelBuffer:    64,
		},
		Scheduler: SchedulerConfig{
			LobbyTick: 100 * time.Millisecond,
			GameTick:  10 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
