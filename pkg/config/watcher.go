package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sitepulse/sitepulse/pkg/observability"
)

// ReloadFunc is invoked with the freshly loaded configuration after the
// watched file changes and revalidates cleanly.
type ReloadFunc func(*Config)

// Watcher reloads configuration when the config file changes on disk.
// It watches the parent directory rather than the file itself so that
// atomic-rename updates (the common editor and configmap pattern) are seen.
// A file that fails to parse or validate is ignored and the previous
// configuration stays in effect.
type Watcher struct {
	path     string
	logger   *observability.Logger
	onReload ReloadFunc

	fw *fsnotify.Watcher

	mu      sync.Mutex
	current *Config
	done    chan struct{}
}

// NewWatcher creates a watcher over the config file at path. The initial
// configuration must already be loaded; it seeds Current.
func NewWatcher(path string, initial *Config, logger *observability.Logger, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		logger:   logger,
		onReload: onReload,
		fw:       fw,
		current:  initial,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfigFile(w.path)
	if err != nil {
		w.logger.WithError(err).WithField("path", w.path).
			Error("config reload rejected, keeping previous configuration")
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.WithField("path", w.path).Info("configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
