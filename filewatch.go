package lumen

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports changes to a fixed set of files. It watches their
// directories, since many editors replace a file rather than write to it.
//
// Only the latest change is kept: a consumer that polls once per frame sees
// at most one path per poll.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	changes chan string
	done    chan struct{}
	logger  Logger
}

func NewFileWatcher(logger Logger, paths ...string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	fw := &FileWatcher{
		watcher: w,
		files:   make(map[string]struct{}),
		changes: make(chan string, 1),
		done:    make(chan struct{}),
		logger:  OrNop(logger),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		fw.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	go fw.run()
	return fw, nil
}

func (fw *FileWatcher) run() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			if _, ok := fw.files[name]; !ok {
				continue
			}
			fw.logger.Debugf("file changed: %s (%s)", name, event.Op)
			fw.publish(name)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warnf("file watcher: %v", err)
		}
	}
}

// publish replaces any change not yet consumed.
func (fw *FileWatcher) publish(name string) {
	for {
		select {
		case fw.changes <- name:
			return
		default:
		}
		select {
		case <-fw.changes:
		default:
		}
	}
}

// Changes delivers changed paths.
func (fw *FileWatcher) Changes() <-chan string { return fw.changes }

// Poll returns the pending change, if any, without blocking.
func (fw *FileWatcher) Poll() (string, bool) {
	select {
	case name := <-fw.changes:
		return name, true
	default:
		return "", false
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (fw *FileWatcher) Close() error {
	err := fw.watcher.Close()
	<-fw.done
	return err
}
