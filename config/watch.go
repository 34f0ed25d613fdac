package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions tunes the config file watcher.
type WatchOptions struct {
	// Cooldown suppresses reloads arriving closer together than this, which
	// absorbs the multiple write events most editors emit per save.
	Cooldown time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{Cooldown: 5 * time.Second}
}

// Watcher reloads the config file on change and hands validated snapshots
// to the update callback. Files that fail to load are skipped; the previous
// configuration stays in effect.
type Watcher struct {
	path    string
	opts    WatchOptions
	watcher *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time
	onUpdate   func(AppConfig)
	onError    func(error)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewWatcher(path string, opts WatchOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		path:    path,
		opts:    opts,
		watcher: fsw,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// OnUpdate installs the callback receiving each successfully reloaded config.
func (w *Watcher) OnUpdate(fn func(AppConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpdate = fn
}

// OnError installs the callback for reload and watch failures.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start begins watching. The watch loop ends when ctx is canceled or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
	case <-time.After(time.Second):
	}
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.opts.Cooldown {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	onUpdate := w.onUpdate
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.reportError(fmt.Errorf("reload config: %w", err))
		return
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}
}

func (w *Watcher) reportError(err error) {
	w.mu.Lock()
	onError := w.onError
	w.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
