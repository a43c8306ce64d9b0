// services/data_update_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/observability"
	"github.com/opencovid/api/snapshot"
)

// Source is an upstream whose content is published as snapshots of T.
type Source[T any] interface {
	Name() string
	// Version returns the upstream's current version token without loading its content.
	Version(ctx context.Context) (models.Version, error)
	// Load fetches and parses the full content along with the version it corresponds to.
	Load(ctx context.Context) (models.Version, T, error)
}

// CheckResult is the outcome of a successful check.
type CheckResult int

const (
	CheckUnchanged CheckResult = iota
	CheckUpdated
)

func (r CheckResult) String() string {
	if r == CheckUpdated {
		return observability.ResultUpdated
	}
	return observability.ResultUnchanged
}

// RefreshRecorder persists successful publishes.
type RefreshRecorder interface {
	RecordRefresh(ctx context.Context, rec models.RefreshRecord) error
}

// Hooks are optional observers shared by every refresher.
type Hooks struct {
	Recorder RefreshRecorder
	Metrics  *observability.Metrics
}

// Refresher keeps one source's snapshot current. Checks of the same refresher never
// overlap; refreshers of different sources are independent.
type Refresher[T any] struct {
	source   Source[T]
	store    *snapshot.Store[T]
	interval time.Duration
	rows     func(T) int
	hooks    Hooks

	mu      sync.Mutex // held for the duration of a check or load
	runMu   sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewRefresher returns a refresher publishing into a new store. rows reports the size of
// a loaded payload for metrics and may be nil.
func NewRefresher[T any](source Source[T], interval time.Duration, rows func(T) int, hooks Hooks) *Refresher[T] {
	if rows == nil {
		rows = func(T) int { return 0 }
	}
	return &Refresher[T]{
		source:   source,
		store:    snapshot.NewStore[T](),
		interval: interval,
		rows:     rows,
		hooks:    hooks,
	}
}

func (r *Refresher[T]) Name() string { return r.source.Name() }

// Store exposes the published snapshots to readers.
func (r *Refresher[T]) Store() *snapshot.Store[T] { return r.store }

// Interval is the time between scheduled checks.
func (r *Refresher[T]) Interval() time.Duration { return r.interval }

// LoadInitial loads and publishes the source unconditionally. Callers treat an error as
// fatal since there is no earlier snapshot to fall back on.
func (r *Refresher[T]) LoadInitial(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Info("Loading source", "source", r.Name())
	if err := r.load(ctx); err != nil {
		return fmt.Errorf("initial load of %s: %w", r.Name(), err)
	}
	return nil
}

// Check compares the upstream version with the published one and reloads on any
// difference. On error the published snapshot is left in place.
func (r *Refresher[T]) Check(ctx context.Context) (CheckResult, error) {
	name := r.Name()
	if !r.mu.TryLock() {
		r.hooks.Metrics.ObserveCheck(name, observability.ResultBusy)
		return CheckUnchanged, fmt.Errorf("%s: %w", name, ErrCheckInProgress)
	}
	defer r.mu.Unlock()

	slog.Debug("Checking if source has changed", "source", name)
	v, err := r.source.Version(ctx)
	if err != nil {
		err = classify(err)
		r.hooks.Metrics.ObserveCheck(name, observability.ResultError)
		return CheckUnchanged, fmt.Errorf("check %s version: %w", name, err)
	}

	if cur := r.store.Current(); cur != nil && cur.Version.Equal(v) {
		slog.Debug("Source has not changed. No action required.", "source", name, "version", v.Token)
		r.hooks.Metrics.ObserveCheck(name, observability.ResultUnchanged)
		return CheckUnchanged, nil
	}

	slog.Info("Source has changed. Reloading.", "source", name, "version", v.Token)
	if err := r.load(ctx); err != nil {
		r.hooks.Metrics.ObserveCheck(name, observability.ResultError)
		return CheckUnchanged, fmt.Errorf("reload %s: %w", name, err)
	}
	r.hooks.Metrics.ObserveCheck(name, observability.ResultUpdated)
	return CheckUpdated, nil
}

// load must be called with mu held.
func (r *Refresher[T]) load(ctx context.Context) error {
	start := time.Now()
	v, data, err := r.source.Load(ctx)
	if err != nil {
		return classify(err)
	}
	snap := r.store.Publish(v, data)
	took := time.Since(start)
	rows := r.rows(data)

	slog.Info("Source has been updated", "source", r.Name(), "version", v.Token, "rows", rows, "took", took)
	r.hooks.Metrics.ObservePublish(r.Name(), took, rows, snap.LoadedAt)

	if r.hooks.Recorder != nil {
		rec := models.RefreshRecord{
			SourceName:  r.Name(),
			Version:     v.Token,
			Rows:        rows,
			DurationMS:  took.Milliseconds(),
			PublishedAt: snap.LoadedAt,
		}
		if err := r.hooks.Recorder.RecordRefresh(ctx, rec); err != nil {
			slog.Error("Failed to record refresh", "source", r.Name(), "error", err)
		}
	}
	return nil
}

// Start runs Check every interval until ctx is cancelled or Stop is called.
func (r *Refresher[T]) Start(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.running {
		return fmt.Errorf("refresher %s is already running", r.Name())
	}
	if r.interval <= 0 {
		return fmt.Errorf("refresher %s: interval must be positive, got %v", r.Name(), r.interval)
	}
	r.running = true
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})

	slog.Info("Refresh scheduler starting", "source", r.Name(), "interval", r.interval.String())
	go r.runLoop(ctx, r.done, r.stopped)
	return nil
}

// Stop signals the loop to exit and waits for an in-flight check to finish. Safe to call
// more than once.
func (r *Refresher[T]) Stop() {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return
	}
	r.running = false
	close(r.done)
	stopped := r.stopped
	r.runMu.Unlock()

	<-stopped
	slog.Info("Refresh scheduler stopped", "source", r.Name())
}

func (r *Refresher[T]) runLoop(ctx context.Context, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher[T]) tick(ctx context.Context) {
	_, err := r.Check(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCheckInProgress):
		slog.Debug("Skipping scheduled check", "source", r.Name(), "reason", err)
	default:
		slog.Error("Scheduled check failed; keeping previous snapshot", "source", r.Name(), "error", err)
	}
}
