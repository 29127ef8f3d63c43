package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file should yield defaults", func(t *testing.T) {
		t.Setenv("TABSWITCH_STATE_DIR", "/tmp/ts-state")
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StateDir != "/tmp/ts-state" {
			t.Errorf("got state dir %q", cfg.StateDir)
		}
		if cfg.SocketPath != "/tmp/ts-state/tabswitch.sock" {
			t.Errorf("got socket %q", cfg.SocketPath)
		}
		if cfg.Store.Driver != "json" || cfg.Tmux.Binary != "tmux" {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("file values should override defaults", func(t *testing.T) {
		path := writeConfig(t, "state_dir: /var/ts\nstore:\n  driver: sqlite\n  path: /var/ts/db\ntmux:\n  binary: /opt/bin/tmux\n")
		cfg, err := Load(path, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StateDir != "/var/ts" || cfg.Store.Driver != "sqlite" || cfg.Store.Path != "/var/ts/db" {
			t.Errorf("got %+v", cfg)
		}
		if cfg.Tmux.Binary != "/opt/bin/tmux" {
			t.Errorf("got tmux binary %q", cfg.Tmux.Binary)
		}
	})

	t.Run("env should override the file", func(t *testing.T) {
		path := writeConfig(t, "store:\n  driver: sqlite\n")
		t.Setenv("TABSWITCH_STORE_DRIVER", "memory")
		t.Setenv("TABSWITCH_SOCKET_PATH", "/run/ts.sock")
		cfg, err := Load(path, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Store.Driver != "memory" || cfg.SocketPath != "/run/ts.sock" {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("overrides should win and move the default socket", func(t *testing.T) {
		path := writeConfig(t, "state_dir: /var/ts\n")
		t.Setenv("TABSWITCH_STATE_DIR", "/env/ts")
		cfg, err := Load(path, map[string]string{"state_dir": "/flag/ts", "socket_path": ""})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.StateDir != "/flag/ts" || cfg.SocketPath != "/flag/ts/tabswitch.sock" {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("unknown driver should be rejected", func(t *testing.T) {
		path := writeConfig(t, "store:\n  driver: redis\n")
		if _, err := Load(path, nil); err == nil {
			t.Error("expected error for unknown driver")
		}
	})

	t.Run("invalid yaml should be rejected", func(t *testing.T) {
		path := writeConfig(t, "store: [unterminated\n")
		if _, err := Load(path, nil); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("TABSWITCH_CONFIG", "/etc/ts.yaml")
	if got := DefaultPath(); got != "/etc/ts.yaml" {
		t.Errorf("got %q, want /etc/ts.yaml", got)
	}
}
