// Package config provides server configuration loading for lobbyhost.
//
// The config package handles:
//   - Built-in defaults for every setting
//   - Loading TOML or YAML files on top of the defaults
//   - Validation of the merged result
//
// Configuration Format:
//
// The file format is chosen by extension (.toml, .yaml, .yml). Durations are
// written as Go duration strings:
//
//	[server]
//	addr = ":8080"
//	handshake_timeout = "30s"
//
//	[scheduler]
//	lobby_tick = "100ms"
//	game_tick = "10ms"
//
//	[logging]
//	level = "info"
//	format = "json"
//
// Keys missing from the file keep their defaults. Environment variables and
// command-line flags are applied afterwards by the lobbyhost command.
//
// Usage:
//
//	cfg, err := config.Load("lobbyhost.toml")
//	if err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
package config
