package sync

import (
	"errors"
	"fmt"
	"sync"
)

type TransferOp string

const (
	TransferUpload   TransferOp = "upload"
	TransferRemove   TransferOp = "remove"
	TransferDownload TransferOp = "download"
)

// TransferOutcome is the result of a single remote call.
type TransferOutcome struct {
	Path      string
	Op        TransferOp
	Succeeded bool
	Skipped   bool
	Err       error
}

func (o *TransferOutcome) Error() string {
	return fmt.Sprintf("%s %s: %v", o.Op, o.Path, o.Err)
}

func (o *TransferOutcome) Unwrap() error {
	return o.Err
}

// SyncResult counts what was actually applied, never what was queued.
type SyncResult struct {
	mu sync.Mutex

	Transferred int
	Removed     int
	Skipped     int
	Compiled    bool
	CompileErr  error
	Errors      []*TransferOutcome
}

func (r *SyncResult) record(o *TransferOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case o.Err != nil:
		r.Errors = append(r.Errors, o)
	case o.Skipped:
		r.Skipped++
	case o.Op == TransferRemove:
		r.Removed++
	default:
		r.Transferred++
	}
}

// Changed reports whether at least one transfer or removal succeeded.
func (r *SyncResult) Changed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Transferred+r.Removed > 0
}

// Failed reports whether any item or the compile step failed.
func (r *SyncResult) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) > 0 || r.CompileErr != nil
}

// Err joins every recorded failure, or returns nil.
func (r *SyncResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make([]error, 0, len(r.Errors)+1)
	for _, o := range r.Errors {
		errs = append(errs, o)
	}
	if r.CompileErr != nil {
		errs = append(errs, fmt.Errorf("compile: %w", r.CompileErr))
	}
	return errors.Join(errs...)
}
