// Package localfs is the theme directory as seen by the sync engine. All
// operations take slash separated paths relative to the theme root.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/themesync/internal/utils"
	"github.com/spf13/afero"
)

var (
	ErrOutsideRoot = errors.New("localfs: path outside theme root")
)

// excludedDirs are never descended into when listing files.
var excludedDirs = map[string]struct{}{
	".git":             {},
	".hg":              {},
	".svn":             {},
	".themesync":       {},
	"node_modules":     {},
	"bower_components": {},
}

type FS struct {
	fs   afero.Fs
	root string
}

// New returns a FS backed by the operating system.
func New(root string) *FS {
	return NewWithFs(afero.NewOsFs(), root)
}

func NewWithFs(fs afero.Fs, root string) *FS {
	return &FS{fs: fs, root: filepath.Clean(root)}
}

func (l *FS) Root() string {
	return l.root
}

func (l *FS) Afero() afero.Fs {
	return l.fs
}

// AbsPath joins a relative path onto the theme root.
func (l *FS) AbsPath(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// RelPath converts an absolute path under the theme root to its asset key.
func (l *FS) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(l.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	return utils.NormPath(rel), nil
}

func (l *FS) Stat(rel string) (os.FileInfo, error) {
	return l.fs.Stat(l.AbsPath(rel))
}

func (l *FS) Exists(rel string) bool {
	ok, err := afero.Exists(l.fs, l.AbsPath(rel))
	return err == nil && ok
}

func (l *FS) MkdirAll(rel string) error {
	return l.fs.MkdirAll(l.AbsPath(rel), 0o755)
}

func (l *FS) ReadFile(rel string) ([]byte, error) {
	return afero.ReadFile(l.fs, l.AbsPath(rel))
}

func (l *FS) WriteFile(rel string, data []byte) error {
	abs := l.AbsPath(rel)
	if err := l.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(l.fs, abs, data, 0o644)
}

// Open returns a read stream for the file.
func (l *FS) Open(rel string) (afero.File, error) {
	return l.fs.Open(l.AbsPath(rel))
}

// Create returns a write stream for the file, creating parent directories.
func (l *FS) Create(rel string) (afero.File, error) {
	abs := l.AbsPath(rel)
	if err := l.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}
	return l.fs.Create(abs)
}

// Rename moves from to to, both relative to the root.
func (l *FS) Rename(from, to string) error {
	dst := l.AbsPath(to)
	if err := l.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return l.fs.Rename(l.AbsPath(from), dst)
}

func (l *FS) Remove(rel string) error {
	return l.fs.Remove(l.AbsPath(rel))
}

// WriteAtomic streams r into a temp file under tmpDir (relative to the root)
// and renames it over rel once fully written.
func (l *FS) WriteAtomic(rel string, r io.Reader, tmpDir string) (int64, error) {
	dst := l.AbsPath(rel)
	if err := l.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("ensure parent: %w", err)
	}

	tmpAbs := l.AbsPath(tmpDir)
	if err := l.fs.MkdirAll(tmpAbs, 0o755); err != nil {
		return 0, fmt.Errorf("ensure temp dir: %w", err)
	}

	tmp, err := afero.TempFile(l.fs, tmpAbs, filepath.Base(dst)+".tmp.*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			l.fs.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := l.fs.Rename(tmpPath, dst); err != nil {
		return n, fmt.Errorf("rename temp file to %s: %w", dst, err)
	}

	success = true
	return n, nil
}

// GetFiles lists the absolute paths of all regular files beneath rel
// ("" for the whole theme). VCS and dependency trees are pruned.
func (l *FS) GetFiles(rel string) ([]string, error) {
	var files []string
	start := l.AbsPath(rel)
	err := afero.Walk(l.fs, start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != start {
				if _, skip := excludedDirs[info.Name()]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Walk visits every entry beneath the root with its relative path.
func (l *FS) Walk(fn func(rel string, info os.FileInfo) error) error {
	return afero.Walk(l.fs, l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == l.root {
			return nil
		}
		rel, err := l.RelPath(path)
		if err != nil {
			return err
		}
		return fn(rel, info)
	})
}

// CheckPath is the baseline exclusion: false when any segment of rel is a
// VCS directory, a dependency tree or the themesync metadata directory.
func (l *FS) CheckPath(rel string) bool {
	for _, seg := range strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/") {
		if _, excluded := excludedDirs[seg]; excluded {
			return false
		}
	}
	return true
}
