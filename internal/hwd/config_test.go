package hwd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "homewatch.toml")
	data := []byte("" +
		"[server]\n" +
		"listen = \"127.0.0.1:9000\"\n" +
		"post_hooks = [\"tv-off.sh\"]\n" +
		"\n" +
		"[library]\n" +
		"root = \"/srv/media\"\n" +
		"cast_generation = \"ultra\"\n" +
		"\n" +
		"[player]\n" +
		"fast_forward = \"10s\"\n" +
		"volume = 80\n" +
		"\n" +
		"[mqtt.embedded]\n" +
		"enabled = true\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:9000" || cfg.Library.Root != "/srv/media" {
		t.Fatalf("expected overrides, got %+v", cfg.Server)
	}
	if cfg.Player.FastForward != 10*time.Second || cfg.Player.Volume != 80 {
		t.Fatalf("expected player overrides, got %+v", cfg.Player)
	}
	if cfg.Player.Rewind != 30*time.Second || cfg.Server.Mode != ModePlayer || !cfg.Player.Loop {
		t.Fatalf("expected defaults to survive, got %+v", cfg.Player)
	}
	if !cfg.MQTT.Embedded.Enabled || cfg.MQTT.Embedded.Listen != "127.0.0.1:1883" {
		t.Fatalf("expected embedded broker defaults, got %+v", cfg.MQTT.Embedded)
	}
	if len(cfg.Server.PostHooks) != 1 || cfg.Server.PostHooks[0] != "tv-off.sh" {
		t.Fatalf("unexpected hooks %v", cfg.Server.PostHooks)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	_ = os.WriteFile(bad, []byte("[server\n"), 0o600)
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadConfigOrDefault("")
	if err != nil {
		t.Fatalf("missing default file: %v", err)
	}
	if cfg.Server.Listen != "0.0.0.0:8000" {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
	if _, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for a missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "no root", mutate: func(c *Config) { c.Library.Root = "" }, want: "library.root"},
		{name: "bad mode", mutate: func(c *Config) { c.Server.Mode = "tv" }, want: "server.mode"},
		{name: "bad library mode", mutate: func(c *Config) { c.Library.Mode = "nfs" }, want: "library.mode"},
		{name: "remote without urls", mutate: func(c *Config) { c.Library.Mode = ModeRemote }, want: "remote_url"},
		{name: "remote library server", mutate: func(c *Config) {
			c.Library.Mode = ModeRemote
			c.Server.Mode = ModeLibrary
		}, want: "local library"},
		{name: "bad engine", mutate: func(c *Config) { c.Player.Engine = "mpv" }, want: "player.engine"},
		{name: "bad volume", mutate: func(c *Config) { c.Player.Volume = 101 }, want: "player.volume"},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Library.Root = "/srv/media"
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_STATE_HOME", "/state")
	path, err := DefaultConfigPath()
	if err != nil || path != "/cfg/homewatch/homewatch.toml" {
		t.Fatalf("unexpected config path %q %v", path, err)
	}
	dir, err := DefaultConfig().DataDir()
	if err != nil || dir != "/state/homewatch" {
		t.Fatalf("unexpected data dir %q %v", dir, err)
	}
	cfg := DefaultConfig()
	cfg.Server.DataDir = "/var/lib/homewatch"
	if dir, _ := cfg.DataDir(); dir != "/var/lib/homewatch" {
		t.Fatalf("expected configured data dir, got %q", dir)
	}
}
