package sync

import (
	"errors"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrQueueFull = errors.New("sync: change queue full")
)

// PendingChangeSet holds the paths waiting to be uploaded or deleted. A path
// is never in both sets; adding it to one withdraws it from the other.
type PendingChangeSet struct {
	mu      sync.Mutex
	uploads mapset.Set[string]
	deletes mapset.Set[string]
	maxSize int
}

// NewPendingChangeSet returns an empty set bounded to maxSize paths per
// direction. maxSize <= 0 means unbounded.
func NewPendingChangeSet(maxSize int) *PendingChangeSet {
	return &PendingChangeSet{
		uploads: mapset.NewThreadUnsafeSet[string](),
		deletes: mapset.NewThreadUnsafeSet[string](),
		maxSize: maxSize,
	}
}

func (s *PendingChangeSet) MaxSize() int {
	return s.maxSize
}

// AddUpload queues path for upload. Returns ErrQueueFull if the upload set is
// at capacity and path is not already queued.
func (s *PendingChangeSet) AddUpload(path string) error {
	return s.add(s.uploads, s.deletes, path)
}

// AddDelete queues path for remote deletion. Returns ErrQueueFull if the
// delete set is at capacity and path is not already queued.
func (s *PendingChangeSet) AddDelete(path string) error {
	return s.add(s.deletes, s.uploads, path)
}

func (s *PendingChangeSet) add(target, other mapset.Set[string], path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the opposite operation is stale either way
	other.Remove(path)

	if target.Contains(path) {
		return nil
	}
	if s.maxSize > 0 && target.Cardinality() >= s.maxSize {
		return ErrQueueFull
	}
	target.Add(path)
	return nil
}

// Drain returns the queued uploads and deletes, sorted, and empties the set.
func (s *PendingChangeSet) Drain() (uploads []string, deletes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads = s.uploads.ToSlice()
	deletes = s.deletes.ToSlice()
	s.uploads.Clear()
	s.deletes.Clear()

	slices.Sort(uploads)
	slices.Sort(deletes)
	return uploads, deletes
}

// Len returns the number of queued uploads and deletes.
func (s *PendingChangeSet) Len() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads.Cardinality(), s.deletes.Cardinality()
}

func (s *PendingChangeSet) IsEmpty() bool {
	uploads, deletes := s.Len()
	return uploads == 0 && deletes == 0
}

func (s *PendingChangeSet) HasUpload(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads.Contains(path)
}

func (s *PendingChangeSet) HasDelete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes.Contains(path)
}
