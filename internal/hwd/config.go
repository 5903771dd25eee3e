package hwd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for the homewatch daemon.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Library LibraryConfig `toml:"library"`
	Player  PlayerConfig  `toml:"player"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig defines the instance role and its HTTP surface.
type ServerConfig struct {
	Mode          string   `toml:"mode"`
	Listen        string   `toml:"listen"`
	DataDir       string   `toml:"data_dir"`
	RestoreStatus bool     `toml:"restore_status"`
	HooksDir      string   `toml:"hooks_dir"`
	PreHooks      []string `toml:"pre_hooks"`
	PostHooks     []string `toml:"post_hooks"`
}

// LibraryConfig tells where the catalogue comes from.
type LibraryConfig struct {
	Mode               string        `toml:"mode"`
	Root               string        `toml:"root"`
	RemoteURL          string        `toml:"remote_url"`
	MediaURL           string        `toml:"media_url"`
	CastGeneration     string        `toml:"cast_generation"`
	SortLocale         string        `toml:"sort_locale"`
	PreferredLanguages []string      `toml:"preferred_languages"`
	ProbeTimeout       time.Duration `toml:"probe_timeout"`
	FFprobe            string        `toml:"ffprobe"`
	FFmpeg             string        `toml:"ffmpeg"`
	ScanWorkers        int           `toml:"scan_workers"`
}

// PlayerConfig holds session and engine settings.
type PlayerConfig struct {
	Engine                string        `toml:"engine"`
	VLCURL                string        `toml:"vlc_url"`
	VLCPassword           string        `toml:"vlc_password"`
	Autoplay              bool          `toml:"autoplay"`
	Shuffle               bool          `toml:"shuffle"`
	Loop                  bool          `toml:"loop"`
	CloseOnEnd            bool          `toml:"close_on_end"`
	FastForward           time.Duration `toml:"fast_forward"`
	Rewind                time.Duration `toml:"rewind"`
	SubsDelayStep         time.Duration `toml:"subs_delay_step"`
	Volume                int           `toml:"volume"`
	AspectRatio           string        `toml:"aspect_ratio"`
	AutoplayDelay         time.Duration `toml:"autoplay_delay"`
	TimeBroadcastInterval time.Duration `toml:"time_broadcast_interval"`
	SleepPollInterval     time.Duration `toml:"sleep_poll_interval"`
	ViewedThreshold       time.Duration `toml:"viewed_threshold"`
	ViewedRatio           float64       `toml:"viewed_ratio"`
}

// MQTTConfig configures the optional protocol mirror.
type MQTTConfig struct {
	Enabled   bool               `toml:"enabled"`
	Broker    string             `toml:"broker"`
	TopicBase string             `toml:"topic_base"`
	ClientID  string             `toml:"client_id"`
	Username  string             `toml:"username"`
	Password  string             `toml:"password"`
	Embedded  EmbeddedMQTTConfig `toml:"embedded"`
}

// EmbeddedMQTTConfig configures the in-process broker.
type EmbeddedMQTTConfig struct {
	Enabled        bool   `toml:"enabled"`
	Listen         string `toml:"listen"`
	AllowAnonymous bool   `toml:"allow_anonymous"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
}

// Instance modes.
const (
	ModePlayer  = "player"
	ModeLibrary = "library"
	ModeLocal   = "local"
	ModeRemote  = "remote"
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Mode:          ModePlayer,
			Listen:        "0.0.0.0:8000",
			RestoreStatus: true,
			PreHooks:      []string{},
			PostHooks:     []string{},
		},
		Library: LibraryConfig{
			Mode:               ModeLocal,
			CastGeneration:     "none",
			SortLocale:         "fr",
			PreferredLanguages: []string{"fr", "fre", "fra", "french"},
			ProbeTimeout:       30 * time.Second,
			FFprobe:            "ffprobe",
			FFmpeg:             "ffmpeg",
			ScanWorkers:        4,
		},
		Player: PlayerConfig{
			Engine:                "vlc",
			VLCURL:                "http://127.0.0.1:8080",
			Autoplay:              true,
			Loop:                  true,
			FastForward:           30 * time.Second,
			Rewind:                30 * time.Second,
			SubsDelayStep:         500 * time.Millisecond,
			Volume:                50,
			AutoplayDelay:         100 * time.Millisecond,
			TimeBroadcastInterval: 900 * time.Millisecond,
			SleepPollInterval:     time.Second,
			ViewedThreshold:       30 * time.Second,
			ViewedRatio:           0.98,
		},
		MQTT: MQTTConfig{
			Broker:    "mqtt://127.0.0.1:1883",
			TopicBase: "homewatch",
			ClientID:  "homewatch",
			Embedded: EmbeddedMQTTConfig{
				Listen:         "127.0.0.1:1883",
				AllowAnonymous: true,
			},
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig decodes path over the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigOrDefault is LoadConfig, except that a missing file at the default
// location yields the defaults.
func LoadConfigOrDefault(path string) (Config, error) {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		path = defaultPath
	}
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) && path == defaultPath {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Validate checks the settings that have a fixed vocabulary.
func (c Config) Validate() error {
	switch c.Server.Mode {
	case ModePlayer, ModeLibrary:
	default:
		return fmt.Errorf("server.mode must be %q or %q, got %q", ModePlayer, ModeLibrary, c.Server.Mode)
	}
	switch c.Library.Mode {
	case ModeLocal:
		if c.Library.Root == "" {
			return errors.New("library.root required in local mode")
		}
	case ModeRemote:
		if c.Server.Mode == ModeLibrary {
			return errors.New("a library server needs a local library")
		}
		if c.Library.RemoteURL == "" || c.Library.MediaURL == "" {
			return errors.New("library.remote_url and library.media_url required in remote mode")
		}
	default:
		return fmt.Errorf("library.mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Library.Mode)
	}
	if c.Server.Mode == ModePlayer {
		switch c.Player.Engine {
		case "vlc", "gstreamer":
		default:
			return fmt.Errorf("player.engine must be vlc or gstreamer, got %q", c.Player.Engine)
		}
		if c.Player.Volume < 0 || c.Player.Volume > 100 {
			return fmt.Errorf("player.volume out of range: %d", c.Player.Volume)
		}
	}
	return nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "homewatch", "homewatch.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "homewatch", "homewatch.toml"), nil
}

// DataDir returns the configured data directory or the XDG state default.
func (c Config) DataDir() (string, error) {
	if c.Server.DataDir != "" {
		return c.Server.DataDir, nil
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "homewatch"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "homewatch"), nil
}
