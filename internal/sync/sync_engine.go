package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmined/themesync/internal/assets"
	"github.com/openmined/themesync/internal/localfs"
	"github.com/openmined/themesync/internal/workspace"
)

type EngineConfig struct {
	// Ignore holds exclusion patterns from the config file.
	Ignore []string
	// ConfigFileName is never synced by watch.
	ConfigFileName string
	DebounceDelay  time.Duration
	MaxQueueSize   int
	BatchSize      int
	Clock          clockwork.Clock
	// OnResult, when set, receives the result of every watch flush.
	OnResult func(*SyncResult)
}

// Engine drives deploy, download, delete and watch for one theme directory.
type Engine struct {
	workspace *workspace.Workspace
	lfs       *localfs.FS
	store     RemoteStore
	config    *EngineConfig
	executor  *BatchExecutor

	watchMu sync.Mutex
}

func NewEngine(ws *workspace.Workspace, lfs *localfs.FS, store RemoteStore, config *EngineConfig) *Engine {
	if config == nil {
		config = &EngineConfig{}
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = DefaultMaxQueueSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Engine{
		workspace: ws,
		lfs:       lfs,
		store:     store,
		config:    config,
		executor:  NewBatchExecutor(store, lfs, config.BatchSize, ws.TmpRelDir()),
	}
}

// Deploy uploads sources, or every local file when sources is empty. With
// Clean, remote files missing locally are removed first.
func (e *Engine) Deploy(ctx context.Context, sources []string, opts DeployOptions) (*SyncResult, error) {
	if err := e.workspace.Setup(); err != nil {
		return nil, err
	}

	classifier, err := e.newClassifier(nil)
	if err != nil {
		return nil, err
	}

	paths, err := e.resolveSources(classifier, sources)
	if err != nil {
		return nil, err
	}

	changes := NewPendingChangeSet(0)

	if opts.Clean {
		remote, err := e.store.ListAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list remote assets: %w", err)
		}
		local, err := e.lfs.GetFiles("")
		if err != nil {
			return nil, fmt.Errorf("list local files: %w", err)
		}

		orphans := NewReconciler(classifier, e.lfs).ComputeOrphans(remote, local, opts.Force)
		slog.Info("deploy clean", "orphans", orphans.Cardinality())
		for orphan := range orphans.Iter() {
			_ = changes.AddDelete(orphan)
		}
	}

	explicit := len(sources) > 0
	for _, p := range paths {
		if !classifier.IsEligible(p, opts.Force) {
			logSkip(explicit, p)
			continue
		}
		_ = changes.AddUpload(p)
	}

	return e.executor.Execute(ctx, changes, ExecuteOptions{NoCompile: opts.NoCompile}), nil
}

// Download pulls sources, or the whole remote theme when sources is empty.
func (e *Engine) Download(ctx context.Context, sources []string) (*SyncResult, error) {
	if err := e.workspace.Setup(); err != nil {
		return nil, err
	}

	classifier, err := e.newClassifier(nil)
	if err != nil {
		return nil, err
	}

	var keys []string

	if len(sources) == 0 {
		remote, err := e.store.ListAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list remote assets: %w", err)
		}

		// a directory sorts before the files beneath it
		slices.SortFunc(remote, func(a, b *assets.Asset) int { return strings.Compare(a.Key, b.Key) })
		for _, a := range remote {
			if a == nil || !classifier.IsEligible(a.Key, true) {
				if a != nil {
					slog.Debug("download skip", "path", a.Key, "reason", "excluded")
				}
				continue
			}
			if a.IsDir() {
				if err := e.lfs.MkdirAll(a.Key); err != nil {
					return nil, fmt.Errorf("create directory %s: %w", a.Key, err)
				}
				continue
			}
			keys = append(keys, a.Key)
		}
	} else {
		for _, src := range sources {
			key, ok := cleanSource(classifier, src)
			if !ok {
				continue
			}
			if !classifier.IsEligible(key, true) {
				logSkip(true, key)
				continue
			}
			keys = append(keys, key)
		}
	}

	return e.executor.Pull(ctx, keys), nil
}

// Delete removes sources from the remote store.
func (e *Engine) Delete(ctx context.Context, sources []string, opts DeleteOptions) (*SyncResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	classifier, err := e.newClassifier(nil)
	if err != nil {
		return nil, err
	}

	changes := NewPendingChangeSet(0)
	for _, src := range sources {
		key, ok := cleanSource(classifier, src)
		if !ok {
			continue
		}
		if !classifier.IsEligible(key, true) {
			logSkip(true, key)
			continue
		}
		_ = changes.AddDelete(key)
	}

	return e.executor.Execute(ctx, changes, ExecuteOptions{NoCompile: opts.NoCompile}), nil
}

// Watch syncs local changes as they happen until ctx is done.
func (e *Engine) Watch(ctx context.Context, opts WatchOptions) error {
	if !e.watchMu.TryLock() {
		return ErrWatchAlreadyRunning
	}
	defer e.watchMu.Unlock()

	if err := e.workspace.Setup(); err != nil {
		return err
	}
	if err := e.workspace.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := e.workspace.Unlock(); err != nil {
			slog.Warn("workspace unlock", "error", err)
		}
	}()

	classifier, err := e.newClassifier(opts.Ignore)
	if err != nil {
		return err
	}

	changes := NewPendingChangeSet(e.config.MaxQueueSize)
	flush := func(ctx context.Context) {
		result := e.executor.Execute(ctx, changes, ExecuteOptions{})
		if e.config.OnResult != nil {
			e.config.OnResult(result)
		}
	}

	coalescer := NewCoalescer(classifier, changes, flush, CoalescerOptions{
		DebounceDelay:  e.config.DebounceDelay,
		ConfigFileName: e.config.ConfigFileName,
		Clock:          e.config.Clock,
	})

	watcher := NewFileWatcher(e.lfs)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	slog.Info("watch start", "dir", e.workspace.Root, "debounce", e.config.DebounceDelay, "maxQueue", e.config.MaxQueueSize)
	coalescer.Run(ctx, watcher.Events())
	if !changes.IsEmpty() {
		pendingUploads, pendingDeletes := changes.Len()
		slog.Warn("watch stopped with unsynced changes; run a deploy to resync", "pendingUploads", pendingUploads, "pendingDeletes", pendingDeletes)
	}
	slog.Info("watch stop", "dir", e.workspace.Root)

	return nil
}

func (e *Engine) newClassifier(extra []string) (*PathClassifier, error) {
	fileIgnores, err := LoadIgnoreFile(e.lfs)
	if err != nil {
		return nil, err
	}

	excludes := slices.Concat(e.config.Ignore, fileIgnores, extra)
	return NewPathClassifier(e.workspace.Root, excludes), nil
}

// resolveSources expands sources into relative file paths. Directories
// expand to every file beneath them; an empty list means the whole theme.
func (e *Engine) resolveSources(classifier *PathClassifier, sources []string) ([]string, error) {
	if len(sources) == 0 {
		return e.filesUnder("")
	}

	var paths []string
	for _, src := range sources {
		rel, ok := cleanSource(classifier, src)
		if !ok {
			continue
		}

		info, err := e.lfs.Stat(rel)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", src, err)
		}

		if !info.IsDir() {
			paths = append(paths, rel)
			continue
		}

		files, err := e.filesUnder(rel)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}

	return paths, nil
}

func (e *Engine) filesUnder(rel string) ([]string, error) {
	files, err := e.lfs.GetFiles(rel)
	if err != nil {
		return nil, fmt.Errorf("list local files: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, abs := range files {
		p, err := e.lfs.RelPath(abs)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// cleanSource normalizes a user supplied source. Sources escaping the root
// are dropped with a security warning.
func cleanSource(classifier *PathClassifier, src string) (string, bool) {
	if !classifier.Contained(src) {
		return "", false
	}

	p := path.Clean(strings.ReplaceAll(src, "\\", "/"))
	if p == "." {
		p = ""
	}
	return p, true
}

func logSkip(explicit bool, p string) {
	if explicit {
		slog.Info("sync skip", "path", p, "reason", "excluded")
	} else {
		slog.Debug("sync skip", "path", p, "reason", "excluded")
	}
}
