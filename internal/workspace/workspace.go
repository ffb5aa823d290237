package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/themesync/internal/utils"
)

const (
	// MetadataDirName holds themesync's own state inside the theme directory.
	MetadataDirName = ".themesync"
	tmpDir          = "tmp"
	logsDir         = "logs"
	lockFile        = "watch.lock"
)

var (
	ErrWorkspaceLocked = errors.New("theme directory is being watched by another process")
	ErrThemeDirMissing = errors.New("theme directory does not exist")
)

// Workspace is a theme directory on disk plus the metadata themesync keeps in it.
type Workspace struct {
	Root        string
	MetadataDir string
	TmpDir      string
	LogsDir     string

	flock *flock.Flock
}

func NewWorkspace(themeDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(themeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", themeDir, err)
	}

	metadata := filepath.Join(root, MetadataDirName)
	return &Workspace{
		Root:        root,
		MetadataDir: metadata,
		TmpDir:      filepath.Join(metadata, tmpDir),
		LogsDir:     filepath.Join(metadata, logsDir),
		flock:       flock.New(filepath.Join(metadata, lockFile)),
	}, nil
}

// Setup checks the theme directory and creates the metadata layout.
func (w *Workspace) Setup() error {
	if !utils.DirExists(w.Root) {
		return fmt.Errorf("%w: %s", ErrThemeDirMissing, w.Root)
	}

	for _, dir := range []string{w.MetadataDir, w.TmpDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Debug("workspace", "root", w.Root)
	return nil
}

// Lock takes the watch lock so that two watchers never drain the same theme.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// only the holder removes the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// TmpRelDir is TmpDir relative to the theme root.
func (w *Workspace) TmpRelDir() string {
	return MetadataDirName + "/" + tmpDir
}
