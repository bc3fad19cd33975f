// Package config loads the TOML configuration of a messaging host.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ClawdCity-Messaging/internal/core/window"
	"ClawdCity-Messaging/internal/messaging"
)

const (
	EnvHTTPAddr = "MESSAGING_HTTP_ADDR"

	TransportMemory = "memory"
	TransportLibp2p = "libp2p"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	HTTP      HTTPConfig      `toml:"http"`
	Page      PageConfig      `toml:"page"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
	Frames    []FrameConfig   `toml:"frames"`
	Channels  []ChannelConfig `toml:"channels"`
}

type HTTPConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// PageConfig describes the browsing context this host runs.
type PageConfig struct {
	Origin string `toml:"origin"`
	// WindowID pins the window id so other hosts can bind frames to it.
	WindowID string `toml:"window_id"`
}

type TransportConfig struct {
	Kind       string       `toml:"kind"`
	Codec      string       `toml:"codec"`
	BufferSize int          `toml:"buffer_size"`
	Libp2p     Libp2pConfig `toml:"libp2p"`
}

type Libp2pConfig struct {
	ListenAddrs     []string `toml:"listen_addrs"`
	Bootstrap       []string `toml:"bootstrap"`
	Rendezvous      string   `toml:"rendezvous"`
	EnableMDNS      bool     `toml:"enable_mdns"`
	IdentityKeyFile string   `toml:"identity_key_file"`
}

type LogConfig struct {
	Level       string         `toml:"level"`
	Format      string         `toml:"format"`
	Outputs     []string       `toml:"outputs"`
	Development bool           `toml:"development"`
	Rotation    RotationConfig `toml:"rotation"`
}

type RotationConfig struct {
	Enable     bool   `toml:"enable"`
	Filename   string `toml:"filename"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// FrameConfig binds a frame element of the page to a remote window.
type FrameConfig struct {
	ElementID string `toml:"element_id"`
	WindowID  string `toml:"window_id"`
}

// ChannelConfig declares a channel configured at startup.
type ChannelConfig struct {
	ElementID string `toml:"element_id"`
	Role      string `toml:"role"`
	Domain    string `toml:"domain"`
	Strict    *bool  `toml:"strict"`
	// Reply is the answer a receive_and_reply channel sends. Empty echoes
	// the received data.
	Reply string `toml:"reply"`
}

func (c ChannelConfig) Settings() messaging.Settings {
	return messaging.Settings{Strict: c.Strict, Domain: c.Domain, Role: c.Role}
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8090"},
		Page: PageConfig{Origin: "http://localhost:8090"},
		Transport: TransportConfig{
			Kind:  TransportMemory,
			Codec: "application/json",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
		},
	}
}

// Load reads path over the defaults, applies env overrides and validates.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("%w: http.addr required", ErrInvalidConfig)
	}
	origin, err := window.ParseOrigin(c.Page.Origin)
	if err != nil {
		return fmt.Errorf("%w: page.origin: %v", ErrInvalidConfig, err)
	}
	c.Page.Origin = origin

	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	switch c.Transport.Kind {
	case TransportMemory, TransportLibp2p:
	default:
		return fmt.Errorf("%w: transport.kind %q", ErrInvalidConfig, c.Transport.Kind)
	}
	switch c.Transport.Codec {
	case "application/json", "application/cbor":
	default:
		return fmt.Errorf("%w: transport.codec %q", ErrInvalidConfig, c.Transport.Codec)
	}

	frames := make(map[string]struct{}, len(c.Frames))
	for i, f := range c.Frames {
		if f.ElementID == "" || f.WindowID == "" {
			return fmt.Errorf("%w: frames[%d] needs element_id and window_id", ErrInvalidConfig, i)
		}
		if _, dup := frames[f.ElementID]; dup {
			return fmt.Errorf("%w: frames[%d] duplicates element %q", ErrInvalidConfig, i, f.ElementID)
		}
		frames[f.ElementID] = struct{}{}
	}
	for i, ch := range c.Channels {
		if ch.ElementID == "" {
			return fmt.Errorf("%w: channels[%d] needs element_id", ErrInvalidConfig, i)
		}
		if _, err := ch.Settings().Options(); err != nil {
			return fmt.Errorf("%w: channels[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}
