// Package watcher tracks the route sources of a nukleus by polling its
// streams directory. Each entry in the directory names one source.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
)

// Acceptor is notified as sources appear and disappear.
type Acceptor interface {
	OnSourceAdded(source string)
	OnSourceRemoved(source string)
}

// Config holds configuration for the Watcher component
type Config struct {
	// Directory holding one entry per source. Empty disables watching.
	Directory string
	Interval  time.Duration
	Logger    *slog.Logger
}

// SetDefaults sets default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.Logger("watcher")
	}
}

// Watcher polls a streams directory and reports source changes.
type Watcher struct {
	config Config

	mu       sync.Mutex
	acceptor Acceptor
	known    map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a watcher. The acceptor is linked later with SetAcceptor.
func New(config Config) *Watcher {
	config.SetDefaults()
	return &Watcher{
		config: config,
		known:  make(map[string]struct{}),
	}
}

// Name implements nukleus.Nukleus.
func (w *Watcher) Name() string {
	return "watcher"
}

// SetAcceptor links the acceptor notified of source changes.
func (w *Watcher) SetAcceptor(acceptor Acceptor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.acceptor = acceptor
}

// Scan reads the directory once and reports sources added or removed since
// the previous scan. A missing directory has no sources.
func (w *Watcher) Scan() error {
	if w.config.Directory == "" {
		return nil
	}

	entries, err := os.ReadDir(w.config.Directory)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("scan %s: %w", w.config.Directory, err)
	}

	current := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		current[e.Name()] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var added, removed []string
	for name := range current {
		if _, ok := w.known[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range w.known {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	w.known = current

	if w.acceptor == nil {
		return nil
	}
	for _, name := range removed {
		w.config.Logger.Debug("source gone", "source", name)
		w.acceptor.OnSourceRemoved(name)
	}
	for _, name := range added {
		w.config.Logger.Debug("source found", "source", name)
		w.acceptor.OnSourceAdded(name)
	}
	return nil
}

// Start scans once and then polls until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.config.Directory == "" {
		return nil
	}
	if err := w.Scan(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.Scan(); err != nil {
					w.config.Logger.Warn("scan failed", "error", err)
				}
			}
		}
	}()

	w.config.Logger.Info("watching streams", "directory", w.config.Directory, "interval", w.config.Interval)
	return nil
}

// Close stops polling and waits for the poller to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Verify that Watcher implements the nukleus contracts at compile time
var (
	_ nukleus.Nukleus = (*Watcher)(nil)
	_ nukleus.Starter = (*Watcher)(nil)
)
