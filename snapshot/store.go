// snapshot/store.go
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/opencovid/api/models"
)

// Snapshot is one published copy of a source's data. It is never modified after Publish,
// so readers may hold on to it for as long as a request runs.
type Snapshot[T any] struct {
	Version  models.Version
	Data     T
	LoadedAt time.Time
}

// Store holds the currently published snapshot of one source.
type Store[T any] struct {
	current atomic.Pointer[Snapshot[T]]
}

// NewStore returns an empty store. Current returns nil until the first Publish.
func NewStore[T any]() *Store[T] {
	return &Store[T]{}
}

// Current returns the published snapshot, or nil before the initial load.
func (s *Store[T]) Current() *Snapshot[T] {
	if s == nil {
		return nil
	}
	return s.current.Load()
}

// Publish replaces the published snapshot in a single step and returns it.
func (s *Store[T]) Publish(v models.Version, data T) *Snapshot[T] {
	snap := &Snapshot[T]{Version: v, Data: data, LoadedAt: time.Now().UTC()}
	s.current.Store(snap)
	return snap
}

// Age reports how long ago the current snapshot was loaded. ok is false when nothing has
// been published yet.
func (s *Store[T]) Age(now time.Time) (age time.Duration, ok bool) {
	snap := s.Current()
	if snap == nil {
		return 0, false
	}
	return now.Sub(snap.LoadedAt), true
}
