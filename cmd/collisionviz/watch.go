package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// sceneWatcher signals when the scene file is rewritten. The render loop polls
// Changed so reloads happen on the main thread.
type sceneWatcher struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
}

// watchScene watches the directory holding path, since editors often replace
// the file rather than write it in place.
func watchScene(path string, log *zap.Logger) (*sceneWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	sw := &sceneWatcher{watcher: w, changed: make(chan struct{}, 1)}
	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				select {
				case sw.changed <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("scene watcher", zap.Error(err))
			}
		}
	}()
	return sw, nil
}

// Changed reports whether the file changed since the last call.
func (sw *sceneWatcher) Changed() bool {
	select {
	case <-sw.changed:
		return true
	default:
		return false
	}
}

func (sw *sceneWatcher) Close() error {
	return sw.watcher.Close()
}
