package gesture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment variables that override
// configuration keys: GESTURE_LOG_LEVEL, GESTURE_BRIDGE__ADDR, ...
// A double underscore separates nested keys.
const EnvPrefix = "GESTURE_"

// Config holds the settings shared by the arbiter, the input adapters and
// the gesturectl tool.
type Config struct {
	// FaultLogSize is how many faults the arbiter retains.
	FaultLogSize int `koanf:"fault_log_size" toml:"fault_log_size"`
	// LogLevel is a zerolog level name.
	LogLevel string `koanf:"log_level" toml:"log_level"`

	Mouse     MouseConfig     `koanf:"mouse" toml:"mouse"`
	Recording RecordingConfig `koanf:"recording" toml:"recording"`
	Bridge    BridgeConfig    `koanf:"bridge" toml:"bridge"`
}

// MouseConfig controls whether the primary mouse button is fed to the
// arbiter as a contact by the ebiten input source.
type MouseConfig struct {
	Enabled   bool `koanf:"enabled" toml:"enabled"`
	ContactID int  `koanf:"contact_id" toml:"contact_id"`
}

// RecordingConfig locates the episode journal.
type RecordingConfig struct {
	Path string `koanf:"path" toml:"path"`
}

// BridgeConfig configures the websocket event bridge.
type BridgeConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
	Path string `koanf:"path" toml:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		FaultLogSize: defaultFaultLogSize,
		LogLevel:     "warn",
		Mouse:        MouseConfig{Enabled: true, ContactID: -1},
		Recording:    RecordingConfig{Path: filepath.Join(xdg.DataHome, "gesture", "episodes.db")},
		Bridge:       BridgeConfig{Addr: "127.0.0.1:7070", Path: "/touch"},
	}
}

func defaultsMap() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"fault_log_size":   d.FaultLogSize,
		"log_level":        d.LogLevel,
		"mouse.enabled":    d.Mouse.Enabled,
		"mouse.contact_id": d.Mouse.ContactID,
		"recording.path":   d.Recording.Path,
		"bridge.addr":      d.Bridge.Addr,
		"bridge.path":      d.Bridge.Path,
	}
}

// LoadConfig layers the defaults, the TOML file at path (skipped when path
// is empty or the file does not exist) and GESTURE_ environment variables.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// TOML renders cfg as a TOML document.
func (c Config) TOML() ([]byte, error) {
	return gotoml.Marshal(c)
}
