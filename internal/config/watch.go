package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/blin/zabby-agent/internal/metrics"
	"github.com/blin/zabby-agent/internal/registry"
)

// debounceWindow absorbs the burst of Write/Chmod events a single save
// usually produces (the Watcher follows fsnotify.filewatch's pattern of one
// goroutine draining fsnotify's Events/Errors channels).
const debounceWindow = 200 * time.Millisecond

// RebuildFunc parses the configuration at path and builds a fresh registry
// snapshot. A failed rebuild must not touch the registry the caller already
// published.
type RebuildFunc func(path string) (*registry.Snapshot, error)

// Watcher watches a config file (and any item files it names) for changes
// and republishes the registry on every settled write.
type Watcher struct {
	Path      string
	ItemFiles []string
	Registry  *registry.Registry
	Rebuild   RebuildFunc
	Log       *logrus.Logger
	Metrics   *metrics.Metrics

	watcher *fsnotify.Watcher
}

// Start opens the underlying fsnotify watcher and adds Path plus every
// configured ItemFiles entry, so editing a UserParameter item-definition
// file triggers a reload the same as editing the config file itself. Run
// must be called afterward to process events.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.Path); err != nil {
		fw.Close()
		return err
	}
	for _, path := range w.ItemFiles {
		if err := fw.Add(path); err != nil {
			fw.Close()
			return err
		}
	}
	w.watcher = fw
	return nil
}

// Run drains events until ctx is canceled, rebuilding and republishing the
// registry on each settled write. It never blocks the connection server:
// a failed rebuild is logged and the previous snapshot stays live.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if pending != nil {
			fire = pending.C
		}

		select {
		case <-ctx.Done():
			return

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logf().WithError(err).Warn("config watcher: fsnotify error")

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.NewTimer(debounceWindow)

		case <-fire:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	snap, err := w.Rebuild(w.Path)
	if err != nil {
		w.logf().WithError(err).Warn("config watcher: reload failed, keeping previous snapshot")
		return
	}
	w.Registry.Publish(snap)
	if w.Metrics != nil {
		w.Metrics.RegistrySize.Set(float64(snap.Len()))
	}
	w.logf().Info("config watcher: registry reloaded")
}

func (w *Watcher) logf() *logrus.Logger {
	if w.Log == nil {
		return logrus.StandardLogger()
	}
	return w.Log
}
