package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/openmined/themesync/internal/assets"
	"github.com/openmined/themesync/internal/localfs"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 10
)

type ExecuteOptions struct {
	NoCompile bool
}

// BatchExecutor applies a drained change set to the remote store in bounded
// batches. Items in a batch run concurrently; batches run one after another.
type BatchExecutor struct {
	store     RemoteStore
	lfs       *localfs.FS
	batchSize int
	tmpDir    string
}

// NewBatchExecutor returns an executor. tmpDir, relative to the theme root,
// holds partial downloads.
func NewBatchExecutor(store RemoteStore, lfs *localfs.FS, batchSize int, tmpDir string) *BatchExecutor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchExecutor{
		store:     store,
		lfs:       lfs,
		batchSize: batchSize,
		tmpDir:    tmpDir,
	}
}

// Execute drains changes and pushes them: every delete is attempted before
// the first upload. The store compiles once if anything was applied.
func (e *BatchExecutor) Execute(ctx context.Context, changes *PendingChangeSet, opts ExecuteOptions) *SyncResult {
	uploads, deletes := changes.Drain()
	result := &SyncResult{}

	if len(uploads) == 0 && len(deletes) == 0 {
		return result
	}

	slog.Debug("sync batch start", "uploads", len(uploads), "deletes", len(deletes), "batchSize", e.batchSize)

	e.runBatches(ctx, deletes, result, e.remove)
	e.runBatches(ctx, uploads, result, e.upload)

	if result.Changed() && !opts.NoCompile {
		e.compile(ctx, result)
	}

	slog.Info("sync batch done", "transferred", result.Transferred, "removed", result.Removed,
		"skipped", result.Skipped, "errors", len(result.Errors), "compiled", result.Compiled)
	return result
}

// Pull downloads keys into the theme directory. It never compiles.
func (e *BatchExecutor) Pull(ctx context.Context, keys []string) *SyncResult {
	result := &SyncResult{}
	keys = slices.Clone(keys)
	slices.Sort(keys)
	e.runBatches(ctx, keys, result, e.download)

	slog.Info("download done", "transferred", result.Transferred, "errors", len(result.Errors))
	return result
}

type transferFunc func(ctx context.Context, path string) *TransferOutcome

func (e *BatchExecutor) runBatches(ctx context.Context, paths []string, result *SyncResult, fn transferFunc) {
	for _, chunk := range chunkBatchSlice(paths, e.batchSize) {
		var g errgroup.Group
		g.SetLimit(e.batchSize)

		for _, p := range chunk {
			g.Go(func() error {
				result.record(fn(ctx, p))
				return nil
			})
		}

		// items report through the result, never through the group
		_ = g.Wait()
	}
}

func (e *BatchExecutor) remove(ctx context.Context, path string) *TransferOutcome {
	out := &TransferOutcome{Path: path, Op: TransferRemove}
	if err := e.store.RemoveAsset(ctx, path); err != nil {
		out.Err = err
		slog.Error("sync", "op", out.Op, "path", path, "error", err)
		return out
	}
	out.Succeeded = true
	slog.Info("sync", "op", out.Op, "path", path)
	return out
}

func (e *BatchExecutor) upload(ctx context.Context, path string) *TransferOutcome {
	out := &TransferOutcome{Path: path, Op: TransferUpload}
	uploaded, err := e.store.UploadAsset(ctx, path, e.lfs.AbsPath(path))
	switch {
	case err != nil:
		out.Err = err
		slog.Error("sync", "op", out.Op, "path", path, "error", err)
	case !uploaded:
		out.Skipped = true
		slog.Warn("sync", "op", out.Op, "path", path, "message", "skipped by store")
	default:
		out.Succeeded = true
		slog.Info("sync", "op", out.Op, "path", path)
	}
	return out
}

func (e *BatchExecutor) download(ctx context.Context, path string) *TransferOutcome {
	out := &TransferOutcome{Path: path, Op: TransferDownload}

	if err := e.fetch(ctx, path); err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		out.Err = err
		slog.Error("sync", "op", out.Op, "path", path, "error", err)
		return out
	}

	out.Succeeded = true
	slog.Info("sync", "op", out.Op, "path", path)
	return out
}

func (e *BatchExecutor) fetch(ctx context.Context, path string) error {
	body, err := e.store.GetAsset(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	if _, err := e.lfs.WriteAtomic(path, body, e.tmpDir); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (e *BatchExecutor) compile(ctx context.Context, result *SyncResult) {
	if err := e.store.CompileAssets(ctx); err != nil {
		result.CompileErr = err
		slog.Error("sync compile failed", "error", err)
		return
	}
	result.Compiled = true
	slog.Info("sync compile done")
}

func chunkBatchSlice(paths []string, chunkSize int) [][]string {
	var chunks [][]string
	for i := 0; i < len(paths); i += chunkSize {
		end := min(i+chunkSize, len(paths))
		chunks = append(chunks, paths[i:end])
	}
	return chunks
}
