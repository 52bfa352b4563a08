package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader watches a config file and re-parses it on change, following the
// teacher's reload-channel idiom (pkg/server/server.go's
// configLoader.SetOnChange): callers install an OnChange handler rather
// than polling. The handler runs synchronously on the watcher goroutine, so
// further file events are not processed until it returns.
type Loader struct {
	path    string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	current  *Config
	onChange func(*Config)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLoader creates a Loader for path and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	l := &Loader{
		path:    path,
		watcher: watcher,
		current: cfg,
		stopCh:  make(chan struct{}),
	}
	go l.watch()
	return l, nil
}

// Current returns the most recently loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// SetOnChange installs the callback invoked after a successful reload. Only
// one callback is retained; a later call replaces the earlier one.
func (l *Loader) SetOnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

func (l *Loader) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.reload()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config: watcher error", "path", l.path, "error", err)
		case <-l.stopCh:
			return
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		slog.Error("config: reload failed, keeping previous configuration", "path", l.path, "error", err)
		return
	}

	l.mu.Lock()
	l.current = cfg
	onChange := l.onChange
	l.mu.Unlock()

	slog.Info("config: reloaded", "path", l.path, "drain_deadline", cfg.DrainDeadline)
	if onChange != nil {
		onChange(cfg.Clone())
	}
}

// Stop stops the watcher goroutine. Idempotent.
func (l *Loader) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.watcher.Close()
	})
}
