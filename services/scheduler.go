// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is a type-erased Refresher.
type Task interface {
	Name() string
	LoadInitial(ctx context.Context) error
	Check(ctx context.Context) (CheckResult, error)
	Start(ctx context.Context) error
	Stop()
}

// Scheduler owns every refresher. Tasks are grouped into stages: tasks within a stage
// load concurrently, and a stage starts only after the previous one has loaded.
type Scheduler struct {
	stages [][]Task
	byName map[string]Task
	order  []string
}

func NewScheduler(stages ...[]Task) *Scheduler {
	s := &Scheduler{stages: stages, byName: make(map[string]Task)}
	for _, stage := range stages {
		for _, t := range stage {
			s.byName[t.Name()] = t
			s.order = append(s.order, t.Name())
		}
	}
	return s
}

// Names lists the sources in load order.
func (s *Scheduler) Names() []string { return s.order }

// LoadAll performs the blocking initial load of every source. Any failure aborts it.
func (s *Scheduler) LoadAll(ctx context.Context) error {
	for _, stage := range s.stages {
		g, gctx := errgroup.WithContext(ctx)
		for _, t := range stage {
			g.Go(func() error { return t.LoadInitial(gctx) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the periodic check loop of every source.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, name := range s.order {
		if err := s.byName[name].Start(ctx); err != nil {
			s.Stop()
			return fmt.Errorf("start %s: %w", name, err)
		}
	}
	return nil
}

// Stop stops every loop.
func (s *Scheduler) Stop() {
	for _, name := range s.order {
		s.byName[name].Stop()
	}
	slog.Info("All refresh schedulers stopped")
}

// Trigger runs one check of the named source outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) (CheckResult, error) {
	t, ok := s.byName[name]
	if !ok {
		return CheckUnchanged, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return t.Check(ctx)
}
