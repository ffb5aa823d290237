package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/fatih/color"
	"github.com/openmined/themesync/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeServer is a minimal theme store recording what the CLI sends.
type storeServer struct {
	mu       gosync.Mutex
	uploads  []string
	deletes  []string
	compiles int
}

func newStoreServer(t *testing.T) (*storeServer, *httptest.Server) {
	t.Helper()

	s := &storeServer{}
	prefix := "/api/v1/themes/7"
	mux := http.NewServeMux()
	mux.HandleFunc("PUT "+prefix+"/assets", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.uploads = append(s.uploads, r.URL.Query().Get("key"))
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"key": r.URL.Query().Get("key")})
	})
	mux.HandleFunc("DELETE "+prefix+"/assets", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deletes = append(s.deletes, r.URL.Query().Get("key"))
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"key": r.URL.Query().Get("key"), "deleted": true})
	})
	mux.HandleFunc("POST "+prefix+"/compile", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.compiles++
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "queued"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func setupCLIEnv(t *testing.T, storeURL string) string {
	t.Helper()
	themeDir := t.TempDir()
	t.Setenv("THEMESYNC_STORE_URL", storeURL)
	t.Setenv("THEMESYNC_THEME_ID", "7")
	t.Setenv("THEMESYNC_ACCESS_TOKEN", "tok")
	return themeDir
}

func TestDeployCommand(t *testing.T) {
	store, srv := newStoreServer(t)
	themeDir := setupCLIEnv(t, srv.URL)
	require.NoError(t, os.MkdirAll(filepath.Join(themeDir, "layout"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(themeDir, "layout", "theme.liquid"), []byte("layout"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(themeDir, ".env"), []byte("SECRET=1"), 0o644))

	run := runThemesync(t, "deploy", "--theme-dir", themeDir)
	require.Equal(t, 0, run.code, run.output)
	assert.Contains(t, run.output, "deploy 1 transferred, 0 removed, 0 skipped")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{"layout/theme.liquid"}, store.uploads)
	assert.Equal(t, 1, store.compiles)

	assert.FileExists(t, filepath.Join(themeDir, ".themesync", "logs", logFileName))
}

func TestDeleteCommand(t *testing.T) {
	store, srv := newStoreServer(t)
	themeDir := setupCLIEnv(t, srv.URL)

	run := runThemesync(t, "delete", "--theme-dir", themeDir, "--no-compile", "snippets/old.liquid")
	require.Equal(t, 0, run.code, run.output)
	assert.Contains(t, run.output, "delete 0 transferred, 1 removed")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{"snippets/old.liquid"}, store.deletes)
	assert.Equal(t, 0, store.compiles)
}

func TestDeleteCommandRequiresArgs(t *testing.T) {
	run := runThemesync(t, "delete")
	assert.Equal(t, 1, run.code)
	assert.Contains(t, run.output, "requires at least 1 arg(s)")
}

func TestDeployCommandMissingSource(t *testing.T) {
	store, srv := newStoreServer(t)
	themeDir := setupCLIEnv(t, srv.URL)

	run := runThemesync(t, "deploy", "--theme-dir", themeDir, "nope.liquid")
	assert.Equal(t, 1, run.code)
	assert.Contains(t, run.output, "source not found")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.uploads)
}

func TestDeployCommandInvalidConfig(t *testing.T) {
	t.Setenv("THEMESYNC_STORE_URL", "")
	run := runThemesync(t, "deploy", "--theme-dir", t.TempDir())
	assert.Equal(t, 1, run.code)
	assert.Contains(t, run.output, "invalid store url")
}

func TestPrintSummary(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var out bytes.Buffer
	err := printSummary(&out, "deploy", &sync.SyncResult{Transferred: 1200, Removed: 2, Skipped: 1})
	require.NoError(t, err)
	assert.Equal(t, "deploy 1,200 transferred, 2 removed, 1 skipped\n", out.String())

	out.Reset()
	failed := &sync.SyncResult{
		Transferred: 1,
		Errors:      []*sync.TransferOutcome{{Path: "a.liquid", Op: sync.TransferUpload, Err: assert.AnError}},
	}
	err = printSummary(&out, "watch", failed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 failed operation(s)")
	assert.Contains(t, out.String(), "failed upload a.liquid")
}
