package themesdk

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openmined/themesync/internal/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// themeServer is a minimal in-memory theme store
type themeServer struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     []string
	compiles atomic.Int32
	failKey  string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *themeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	prefix := "/api/v1/themes/42"

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeJSON(w, http.StatusUnauthorized, NewAPIError(CodeAccessDenied, "bad token"))
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET "+prefix+"/assets", auth(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		resp := ListResponse{}
		for _, d := range s.dirs {
			resp.Assets = append(resp.Assets, &AssetInfo{Key: d, Kind: AssetKindDirectory})
		}
		for k, v := range s.files {
			resp.Assets = append(resp.Assets, &AssetInfo{Key: k, Kind: AssetKindFile, Size: int64(len(v)), UpdatedAt: time.Unix(1700000000, 0).UTC()})
		}
		writeJSON(w, http.StatusOK, resp)
	}))

	mux.HandleFunc("GET "+prefix+"/assets/content", auth(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.files[r.URL.Query().Get("key")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, NewAPIError(CodeAssetNotFound, "no such asset"))
			return
		}
		_, _ = w.Write(data)
	}))

	mux.HandleFunc("PUT "+prefix+"/assets", auth(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == s.failKey {
			writeJSON(w, http.StatusInternalServerError, NewAPIError(CodeAssetUploadFailed, "disk full"))
			return
		}
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			writeJSON(w, http.StatusBadRequest, NewAPIError(CodeInvalidRequest, err.Error()))
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		s.mu.Lock()
		s.files[key] = data
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, UploadResponse{Key: key, Size: int64(len(data))})
	}))

	mux.HandleFunc("DELETE "+prefix+"/assets", auth(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		s.mu.Lock()
		_, ok := s.files[key]
		delete(s.files, key)
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, NewAPIError(CodeAssetNotFound, "no such asset"))
			return
		}
		writeJSON(w, http.StatusOK, DeleteResponse{Key: key, Deleted: true})
	}))

	mux.HandleFunc("POST "+prefix+"/compile", auth(func(w http.ResponseWriter, r *http.Request) {
		s.compiles.Add(1)
		writeJSON(w, http.StatusOK, CompileResponse{Status: "queued", BuildID: "b1"})
	}))

	return mux
}

func setupStore(t *testing.T, token string, maxSize int64) (*AssetStore, *themeServer) {
	t.Helper()
	srv := &themeServer{files: map[string][]byte{}}
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	sdk, err := New(&Config{BaseURL: ts.URL, ThemeID: "42", AccessToken: token, MaxAssetSize: maxSize})
	require.NoError(t, err)
	sdk.Client().SetCommonRetryCount(0)

	return NewAssetStore(sdk), srv
}

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	return p
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&Config{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, ErrNoThemeID)
}

func TestAssetStoreUploadAndList(t *testing.T) {
	store, srv := setupStore(t, "tok", 0)

	ok, err := store.UploadAsset(t.Context(), "templates/index.liquid", writeTempFile(t, "index.liquid", 10))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, srv.files["templates/index.liquid"], 10)

	srv.dirs = []string{"templates"}
	list, err := store.ListAssets(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 2)

	byKey := map[string]*assets.Asset{}
	for _, a := range list {
		byKey[a.Key] = a
	}
	assert.True(t, byKey["templates"].IsDir())
	assert.Equal(t, assets.KindFile, byKey["templates/index.liquid"].Kind)
	assert.Equal(t, int64(10), byKey["templates/index.liquid"].Size)
}

func TestAssetStoreUploadSkips(t *testing.T) {
	store, srv := setupStore(t, "tok", 8)

	ok, err := store.UploadAsset(t.Context(), "assets/big.js", writeTempFile(t, "big.js", 9))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UploadAsset(t.Context(), "assets", t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, srv.files)
}

func TestAssetStoreUploadFailure(t *testing.T) {
	store, srv := setupStore(t, "tok", 0)
	srv.failKey = "assets/app.css"

	ok, err := store.UploadAsset(t.Context(), "assets/app.css", writeTempFile(t, "app.css", 3))
	assert.False(t, ok)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeAssetUploadFailed, apiErr.Code)
}

func TestAssetStoreGetAsset(t *testing.T) {
	store, srv := setupStore(t, "tok", 0)
	srv.files["snippets/card.liquid"] = []byte("card")

	body, err := store.GetAsset(t.Context(), "snippets/card.liquid")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "card", string(data))

	_, err = store.GetAsset(t.Context(), "snippets/missing.liquid")
	assert.ErrorIs(t, err, assets.ErrNotFound)
}

func TestAssetStoreRemoveIsIdempotent(t *testing.T) {
	store, srv := setupStore(t, "tok", 0)
	srv.files["a.liquid"] = []byte("a")

	require.NoError(t, store.RemoveAsset(t.Context(), "a.liquid"))
	assert.NotContains(t, srv.files, "a.liquid")
	require.NoError(t, store.RemoveAsset(t.Context(), "a.liquid"))
}

func TestAssetStoreCompile(t *testing.T) {
	store, srv := setupStore(t, "tok", 0)

	require.NoError(t, store.CompileAssets(t.Context()))
	assert.Equal(t, int32(1), srv.compiles.Load())
}

func TestAssetStoreUnauthorized(t *testing.T) {
	store, _ := setupStore(t, "wrong", 0)

	_, err := store.ListAssets(t.Context())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
