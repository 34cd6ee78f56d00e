package main

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 100 * time.Millisecond

// ConfigWatcher reloads a ConfigStore whenever its file changes on disk.
// The directory is watched rather than the file so editors that replace the
// file on save are still noticed.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	store   *ConfigStore
	file    string
	Reloads chan *Config
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchConfig starts watching the store's file
func WatchConfig(store *ConfigStore) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	file, err := filepath.Abs(store.Path())
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		watcher: w,
		store:   store,
		file:    file,
		Reloads: make(chan *Config, 4),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

// Close stops the watcher
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.closeCh)
		err = cw.watcher.Close()
		<-cw.done
		close(cw.Reloads)
	})
	return err
}

func (cw *ConfigWatcher) run() {
	defer close(cw.done)
	log := logger.WithField("config", cw.file)

	// Editors often write a file in several steps; reload once things settle
	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != cw.file {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if err := cw.store.Reload(); err != nil {
				log.WithError(err).Warn("config reload failed, keeping previous config")
				continue
			}
			cfg := cw.store.Get()
			log.WithFields(logrus.Fields{
				"level": cfg.Log.Level,
			}).Info("config reloaded")
			select {
			case cw.Reloads <- cfg:
			default:
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watch error")

		case <-cw.closeCh:
			return
		}
	}
}
