package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Watcher reloads the configuration when the file changes on disk. Reload
// failures keep the previous configuration and are logged.
type Watcher struct {
	path     string
	loader   *Loader
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	debounce time.Duration

	mu      sync.Mutex
	current *Config
	done    chan struct{}
	once    sync.Once
}

// NewWatcher loads the file once and starts watching its directory. Editors
// replace files instead of writing in place, so the directory is watched and
// events are filtered by name.
func NewWatcher(path string, loader *Loader, onChange func(*Config)) (*Watcher, error) {
	if loader == nil {
		loader = NewLoader()
	}

	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		path:     path,
		loader:   loader,
		watcher:  fw,
		onChange: onChange,
		debounce: 200 * time.Millisecond,
		current:  cfg,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Coalesce the burst of events a single save produces.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("config")).
				Add(logging.ErrorField(err)).
				Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload failed, keeping previous configuration")
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("configuration reloaded")

	if w.onChange != nil {
		w.onChange(cfg)
	}
}
