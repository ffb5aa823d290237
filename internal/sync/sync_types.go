package sync

import (
	"context"
	"errors"
	"io"

	"github.com/openmined/themesync/internal/assets"
)

var (
	ErrNoSources           = errors.New("sync: at least one source is required")
	ErrSourceNotFound      = errors.New("sync: source not found")
	ErrWatchAlreadyRunning = errors.New("sync: watch already running")
)

// RemoteStore is the remote asset store the engine syncs against.
type RemoteStore interface {
	// ListAssets returns every asset of the theme, directories included.
	ListAssets(ctx context.Context) ([]*assets.Asset, error)

	// GetAsset opens the content of one asset. Returns assets.ErrNotFound
	// when the key does not exist.
	GetAsset(ctx context.Context, key string) (io.ReadCloser, error)

	// UploadAsset pushes the file at localAbsPath to key. It returns false
	// when the store skipped the file, e.g. a directory or an oversized file.
	UploadAsset(ctx context.Context, key string, localAbsPath string) (bool, error)

	// RemoveAsset deletes key. Removing a missing key is not an error.
	RemoveAsset(ctx context.Context, key string) error

	// CompileAssets asks the store to rebuild the theme after changes.
	CompileAssets(ctx context.Context) error
}

type DeployOptions struct {
	// Clean removes remote assets that have no local counterpart.
	Clean bool
	// Force lifts the sensitive path rule.
	Force     bool
	NoCompile bool
}

type DeleteOptions struct {
	NoCompile bool
}

type WatchOptions struct {
	// Ignore holds extra gitignore-style exclusion patterns.
	Ignore []string
}
