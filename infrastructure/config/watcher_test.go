package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, address string) {
	t.Helper()
	content := "server:\n  address: \"" + address + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dwellsense.yaml")
	writeConfig(t, path, ":8080")

	changed := make(chan *Config, 1)
	watcher, err := NewWatcher(path, NewLoader(), func(cfg *Config) {
		changed <- cfg
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	if got := watcher.Current().Server.Address; got != ":8080" {
		t.Fatalf("expected initial address :8080, got %q", got)
	}

	writeConfig(t, path, ":9090")

	select {
	case cfg := <-changed:
		if cfg.Server.Address != ":9090" {
			t.Errorf("expected reloaded address :9090, got %q", cfg.Server.Address)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_BadReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dwellsense.yaml")
	writeConfig(t, path, ":8080")

	watcher, err := NewWatcher(path, NewLoader(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Give the debounced reload time to run and fail.
	time.Sleep(600 * time.Millisecond)

	if got := watcher.Current().Server.Address; got != ":8080" {
		t.Errorf("expected previous config to survive, got address %q", got)
	}
}
