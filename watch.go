package sharegl

import (
	"github.com/fsnotify/fsnotify"
	"log"
	"path/filepath"
)

// fileWatcher reports changes to a single file.
type fileWatcher struct {
	w       *fsnotify.Watcher
	changes chan struct{}
}

// watchFile starts watching path. The parent directory is watched, as editors often replace a
// file instead of writing to it.
func watchFile(path string) (*fileWatcher, error) {
	w, err := newFsWatcher()
	if err != nil {
		return nil, err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err = w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, err
	}
	fw := &fileWatcher{w: w, changes: make(chan struct{}, 1)}
	go fw.loop(target)
	return fw, nil
}

func (fw *fileWatcher) loop(target string) {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if abs, err := filepath.Abs(ev.Name); err != nil || abs != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			select {
			case fw.changes <- struct{}{}:
			default: // A reload is already pending
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			log.Println("[Producer] File watcher error:", err)
		}
	}
}

// Changes receives a value after the file changed. Bursts of events are coalesced.
func (fw *fileWatcher) Changes() <-chan struct{} {
	return fw.changes
}

func (fw *fileWatcher) Close() error {
	return fw.w.Close()
}
