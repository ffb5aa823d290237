package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultDebounceDelay = time.Second
	DefaultMaxQueueSize  = 1000
)

// FlushFunc drains the pending change set. It is called at most once at a time.
type FlushFunc func(ctx context.Context)

type CoalescerOptions struct {
	DebounceDelay time.Duration
	// ConfigFileName is the tool's own config file, relative to the root.
	ConfigFileName string
	Clock          clockwork.Clock
}

// Coalescer folds watcher notifications into the pending change set and
// triggers one flush once notifications have been quiet for the debounce delay.
type Coalescer struct {
	classifier *PathClassifier
	changes    *PendingChangeSet
	flush      FlushFunc
	clock      clockwork.Clock
	delay      time.Duration
	configName string

	timerMu    sync.Mutex
	timer      clockwork.Timer
	generation uint64
	ctx        context.Context
	stopped    bool

	processing atomic.Bool
	inflight   sync.WaitGroup
}

func NewCoalescer(classifier *PathClassifier, changes *PendingChangeSet, flush FlushFunc, opts CoalescerOptions) *Coalescer {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Coalescer{
		classifier: classifier,
		changes:    changes,
		flush:      flush,
		clock:      opts.Clock,
		delay:      opts.DebounceDelay,
		configName: opts.ConfigFileName,
		ctx:        context.Background(),
	}
}

// Run handles events one at a time until ctx is done or events is closed.
func (c *Coalescer) Run(ctx context.Context, events <-chan ChangeEvent) {
	c.timerMu.Lock()
	c.ctx = ctx
	c.timerMu.Unlock()

	defer c.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Handle(ev)
		}
	}
}

// Handle applies a single notification to the pending change set. It never
// panics; a failure is logged with the offending path.
func (c *Coalescer) Handle(ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("watch", "op", "handle", "path", ev.Path, "error", fmt.Sprint(r))
		}
	}()

	if ev.Path == "" || ev.Path == c.configName || !c.classifier.IsEligible(ev.Path, false) {
		return
	}

	switch {
	case ev.Kind == EntryDirectory:
		slog.Info("watch", "op", ev.Op, "kind", ev.Kind, "path", ev.Path)
	case ev.Op == OpDeleted:
		c.enqueue(ev, c.changes.AddDelete)
	default:
		c.enqueue(ev, c.changes.AddUpload)
	}
}

func (c *Coalescer) enqueue(ev ChangeEvent, add func(string) error) {
	if err := add(ev.Path); err != nil {
		if errors.Is(err, ErrQueueFull) {
			slog.Warn("watch queue full, change dropped; run a full deploy to resync",
				"op", ev.Op, "path", ev.Path, "limit", c.changes.MaxSize())
			return
		}
		slog.Error("watch", "op", ev.Op, "path", ev.Path, "error", err)
		return
	}

	slog.Debug("watch", "op", ev.Op, "kind", ev.Kind, "path", ev.Path)
	c.schedule()
}

// schedule (re)starts the debounce timer.
func (c *Coalescer) schedule() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.generation++
	gen := c.generation
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
}

// fire runs the flush unless the timer was superseded after it expired. A
// batch that has started is not cancelled with the watch.
func (c *Coalescer) fire(gen uint64) {
	c.timerMu.Lock()
	if gen != c.generation {
		c.timerMu.Unlock()
		return
	}
	c.timer = nil
	ctx := context.WithoutCancel(c.ctx)
	c.timerMu.Unlock()

	c.Flush(ctx)
}

// Flush runs the flush function unless one is already in progress or the
// coalescer is stopped. Changes queued while it ran are debounced again.
func (c *Coalescer) Flush(ctx context.Context) bool {
	c.timerMu.Lock()
	if c.stopped {
		c.timerMu.Unlock()
		slog.Debug("watch stopped, flush skipped")
		return false
	}
	c.inflight.Add(1)
	c.timerMu.Unlock()
	defer c.inflight.Done()

	if !c.processing.CompareAndSwap(false, true) {
		slog.Debug("watch flush already in progress, changes stay queued")
		return false
	}

	c.flush(ctx)
	c.processing.Store(false)

	if ctx.Err() == nil && !c.changes.IsEmpty() {
		c.schedule()
	}
	return true
}

// Stop cancels a pending debounce timer and waits for a flush in progress.
// No flush starts afterwards. It is safe to call more than once.
func (c *Coalescer) Stop() {
	c.timerMu.Lock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	c.timerMu.Unlock()

	c.inflight.Wait()
}
