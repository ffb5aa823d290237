package sync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"slices"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/openmined/themesync/internal/assets"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory RemoteStore.
type fakeStore struct {
	mu    gosync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	failUpload map[string]bool
	failRemove map[string]bool
	skip       map[string]bool
	failList   bool
	failComp   bool
	delay      time.Duration

	calls    []string
	compiles atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:      make(map[string][]byte),
		dirs:       make(map[string]bool),
		failUpload: make(map[string]bool),
		failRemove: make(map[string]bool),
		skip:       make(map[string]bool),
	}
}

func (s *fakeStore) enter(call string) func() {
	n := s.inflight.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inflight.Add(-1) }
}

func (s *fakeStore) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok
}

func (s *fakeStore) put(key string, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = []byte(data)
}

func (s *fakeStore) ListAssets(ctx context.Context) ([]*assets.Asset, error) {
	if s.failList {
		return nil, errInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*assets.Asset
	for dir := range s.dirs {
		out = append(out, &assets.Asset{Key: dir, Kind: assets.KindDirectory})
	}
	for key, data := range s.files {
		out = append(out, &assets.Asset{Key: key, Kind: assets.KindFile, Size: int64(len(data))})
	}
	return out, nil
}

func (s *fakeStore) GetAsset(ctx context.Context, key string) (io.ReadCloser, error) {
	defer s.enter("get " + key)()
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[key]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) UploadAsset(ctx context.Context, key string, localAbsPath string) (bool, error) {
	defer s.enter("upload " + key)()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.failUpload[key] {
		return false, errInjected
	}
	if s.skip[key] {
		return false, nil
	}

	data, err := os.ReadFile(localAbsPath)
	if err != nil {
		// executor tests run on a memory fs
		data = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return true, nil
}

func (s *fakeStore) RemoveAsset(ctx context.Context, key string) error {
	defer s.enter("remove " + key)()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failRemove[key] {
		return errInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *fakeStore) CompileAssets(ctx context.Context) error {
	s.compiles.Add(1)
	if s.failComp {
		return errInjected
	}
	return nil
}
