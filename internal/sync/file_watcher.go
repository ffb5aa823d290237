package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/openmined/themesync/internal/localfs"
	"github.com/rjeczalik/notify"
)

const (
	rawEventBufferSize = 512
	eventBufferSize    = 256
)

// FileWatcher watches the theme directory recursively and emits translated
// ChangeEvents, one at a time, on a bounded channel.
type FileWatcher struct {
	lfs       *localfs.FS
	root      string
	rawEvents chan notify.EventInfo
	events    chan ChangeEvent
	index     *entryIndex
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func NewFileWatcher(lfs *localfs.FS) *FileWatcher {
	return &FileWatcher{
		lfs:    lfs,
		events: make(chan ChangeEvent, eventBufferSize),
		index:  newEntryIndex(),
		done:   make(chan struct{}),
	}
}

func (fw *FileWatcher) Start(ctx context.Context) error {
	root, err := filepath.EvalSymlinks(fw.lfs.Root())
	if err != nil {
		return fmt.Errorf("resolve watch dir: %w", err)
	}
	fw.root = root

	slog.Info("file watcher start", "dir", fw.root)

	// the index must know what exists before the first notification arrives
	err = fw.lfs.Walk(func(rel string, info os.FileInfo) error {
		if !fw.lfs.CheckPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		fw.index.seed(rel, info.IsDir())
		return nil
	})
	if err != nil {
		return fmt.Errorf("index watch dir: %w", err)
	}

	fw.rawEvents = make(chan notify.EventInfo, rawEventBufferSize)
	recursivePath := filepath.Join(fw.root, "...")
	if err := notify.Watch(recursivePath, fw.rawEvents, notify.Create, notify.Remove, notify.Write, notify.Rename); err != nil {
		return fmt.Errorf("watch %s: %w", fw.root, err)
	}

	fw.wg.Add(1)
	go fw.translateEvents(ctx)

	return nil
}

// Stop releases the watch. It is safe to call more than once.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		slog.Info("file watcher stopping")
		close(fw.done)

		if fw.rawEvents != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Warn("file watcher release failed", "error", r)
					}
				}()
				notify.Stop(fw.rawEvents)
			}()
		}

		fw.wg.Wait()
		slog.Info("file watcher stopped")
	})
}

// Events is closed once the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

func (fw *FileWatcher) translateEvents(ctx context.Context) {
	defer func() {
		close(fw.events)
		fw.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case raw, ok := <-fw.rawEvents:
			if !ok {
				return
			}
			ev, ok := fw.translate(raw.Path())
			if !ok {
				continue
			}
			select {
			case fw.events <- ev:
			case <-ctx.Done():
				return
			case <-fw.done:
				return
			}
		}
	}
}

func (fw *FileWatcher) translate(absPath string) (ChangeEvent, bool) {
	rel, err := filepath.Rel(fw.root, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ChangeEvent{}, false
	}
	rel = filepath.ToSlash(rel)
	if !fw.lfs.CheckPath(rel) {
		return ChangeEvent{}, false
	}

	info, err := fw.lfs.Stat(rel)
	if errors.Is(err, os.ErrNotExist) {
		info = nil
	} else if err != nil {
		slog.Debug("file watcher stat", "path", rel, "error", err)
		return ChangeEvent{}, false
	}

	return fw.index.translate(rel, info)
}
