package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/hotkey"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrameRate != DefaultFrameRate || cfg.KeepAlive != hotkey.DefaultKeepAlive || cfg.MousePoll != DefaultMousePoll {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Bindings) != 4 {
		t.Errorf("expected 4 default bindings, got %d", len(cfg.Bindings))
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestLoadValues(t *testing.T) {
	path := writeConfig(t, `
frame_rate: 30
keepalive: 90s
mouse_poll: 4ms
prefs_file: /tmp/halo-prefs.json
hotkeys:
  request_quit: Alt+Q
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrameRate != 30 {
		t.Errorf("frame_rate = %d", cfg.FrameRate)
	}
	if cfg.KeepAlive != 90*time.Second {
		t.Errorf("keepalive = %s", cfg.KeepAlive)
	}
	if cfg.MousePoll != 4*time.Millisecond {
		t.Errorf("mouse_poll = %s", cfg.MousePoll)
	}
	if cfg.PrefsFile != "/tmp/halo-prefs.json" {
		t.Errorf("prefs_file = %s", cfg.PrefsFile)
	}
	if cfg.FrameInterval() != time.Second/30 {
		t.Errorf("FrameInterval = %s", cfg.FrameInterval())
	}

	var quit hotkey.Binding
	for _, b := range cfg.Bindings {
		if b.Action == event.RequestQuit {
			quit = b
		}
	}
	if quit.Chord != (hotkey.Chord{Mods: hotkey.ModAlt, Key: "Q"}) {
		t.Errorf("quit chord = %s, want Alt+Q", quit.Chord)
	}
}

func TestLoadClamps(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		frameRate int
		keepAlive time.Duration
	}{
		{"low frame rate", "frame_rate: 1\n", MinFrameRate, hotkey.DefaultKeepAlive},
		{"high frame rate", "frame_rate: 1000\n", MaxFrameRate, hotkey.DefaultKeepAlive},
		{"short keepalive", "keepalive: 1s\n", DefaultFrameRate, MinKeepAlive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.FrameRate != tt.frameRate {
				t.Errorf("frame_rate = %d, want %d", cfg.FrameRate, tt.frameRate)
			}
			if cfg.KeepAlive != tt.keepAlive {
				t.Errorf("keepalive = %s, want %s", cfg.KeepAlive, tt.keepAlive)
			}
		})
	}
}

func TestLoadRejectsBadHotkey(t *testing.T) {
	if _, err := Load(writeConfig(t, "hotkeys:\n  show_help: Hyper+H\n")); err == nil {
		t.Error("expected error for bad chord")
	}
	if _, err := Load(writeConfig(t, "hotkeys:\n  self_destruct: Ctrl+D\n")); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "frame_rate: [\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.FrameRate != DefaultFrameRate {
		t.Errorf("parse failure should return defaults, got %+v", cfg)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/prefs.json"); got != filepath.Join(home, "x", "prefs.json") {
		t.Errorf("expandHome = %s", got)
	}
	if got := expandHome("/abs/prefs.json"); got != "/abs/prefs.json" {
		t.Errorf("absolute path changed: %s", got)
	}
}
