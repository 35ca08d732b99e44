// Package config loads and saves the daemon configuration from
// <datadir>/config.toml.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration.
type Config struct {
	// ListenAddr is the HTTP/WebSocket bind address.
	ListenAddr string `toml:"listen_addr"`
	// AllowedOrigins lists origins accepted for CORS and the
	// WebSocket handshake.
	AllowedOrigins []string `toml:"allowed_origins"`
	// JWTSecret signs and verifies principal tokens.
	JWTSecret string `toml:"jwt_secret"`
	// ResponderURL is the base URL of the conversational auto-responder.
	// Empty disables auto-replies.
	ResponderURL string `toml:"responder_url"`
	// ResponderTimeoutSec bounds a single responder call.
	ResponderTimeoutSec int `toml:"responder_timeout_sec"`
	// ChannelName labels the WhatsApp channel session record.
	ChannelName string `toml:"channel_name"`
}

// Default returns the configuration used when no config.toml exists.
func Default() *Config {
	return &Config{
		ListenAddr:          "127.0.0.1:8080",
		AllowedOrigins:      []string{"http://localhost:3000"},
		ResponderTimeoutSec: 10,
		ChannelName:         "default",
	}
}

// ResponderTimeout returns the responder call budget as a duration.
func (c *Config) ResponderTimeout() time.Duration {
	if c.ResponderTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ResponderTimeoutSec) * time.Second
}

// Load reads config from the given path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrInit reads config from path, writing and returning the default
// configuration when the file does not exist yet.
func LoadOrInit(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cfg = Default()
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
