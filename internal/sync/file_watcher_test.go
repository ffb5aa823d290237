package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/themesync/internal/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryIndexTranslate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/theme/assets", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/theme/assets/app.css", []byte("a"), 0o644))

	stat := func(p string) os.FileInfo {
		info, err := fs.Stat(filepath.Join("/theme", p))
		require.NoError(t, err)
		return info
	}

	idx := newEntryIndex()

	ev, ok := idx.translate("assets", stat("assets"))
	require.True(t, ok)
	assert.Equal(t, ChangeEvent{Path: "assets", Op: OpCreated, Kind: EntryDirectory}, ev)

	// touching a known directory carries no change
	_, ok = idx.translate("assets", stat("assets"))
	assert.False(t, ok)

	ev, ok = idx.translate("assets/app.css", stat("assets/app.css"))
	require.True(t, ok)
	assert.Equal(t, OpCreated, ev.Op)

	ev, ok = idx.translate("assets/app.css", stat("assets/app.css"))
	require.True(t, ok)
	assert.Equal(t, OpModified, ev.Op)
	assert.Equal(t, EntryFile, ev.Kind)

	ev, ok = idx.translate("assets", nil)
	require.True(t, ok)
	assert.Equal(t, ChangeEvent{Path: "assets", Op: OpDeleted, Kind: EntryDirectory}, ev)
	assert.Empty(t, idx.entries)
}

func TestEntryIndexUnknownRemovalIsFile(t *testing.T) {
	idx := newEntryIndex()
	ev, ok := idx.translate("snippets/gone.liquid", nil)
	require.True(t, ok)
	assert.Equal(t, EntryFile, ev.Kind)
	assert.Equal(t, OpDeleted, ev.Op)
}

func TestFileWatcherTranslateSkipsExcluded(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/theme/.git/HEAD", []byte("ref"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/theme/layout/theme.liquid", []byte("x"), 0o644))

	fw := NewFileWatcher(localfs.NewWithFs(fs, "/theme"))
	fw.root = "/theme"

	_, ok := fw.translate("/theme/.git/HEAD")
	assert.False(t, ok)

	_, ok = fw.translate("/elsewhere/file.liquid")
	assert.False(t, ok)

	_, ok = fw.translate("/theme")
	assert.False(t, ok)

	ev, ok := fw.translate("/theme/layout/theme.liquid")
	require.True(t, ok)
	assert.Equal(t, "layout/theme.liquid", ev.Path)
	assert.Equal(t, OpCreated, ev.Op)
}

func TestFileWatcherBasic(t *testing.T) {
	// tmpdir may live behind a symlink (macos /var -> /private/var)
	tempDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err, "failed to evaluate symlinks")

	fw := NewFileWatcher(localfs.New(tempDir))
	require.NoError(t, fw.Start(t.Context()), "failed to start file watcher")
	defer fw.Stop()

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("hello world"), 0o644))

	select {
	case event := <-fw.Events():
		assert.Equal(t, "test.txt", event.Path)
		assert.Equal(t, OpCreated, event.Op)
		assert.Equal(t, EntryFile, event.Kind)
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "Timeout waiting for file event")
	}
}

func TestFileWatcherStopTwice(t *testing.T) {
	tempDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	fw := NewFileWatcher(localfs.New(tempDir))
	require.NoError(t, fw.Start(t.Context()))

	fw.Stop()
	assert.NotPanics(t, fw.Stop)

	// the events channel is closed once stopped
	select {
	case _, ok := <-fw.Events():
		for ok {
			_, ok = <-fw.Events()
		}
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "events channel not closed")
	}
}
