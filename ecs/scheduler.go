package ecs

import (
	"context"
	"reflect"
	"time"
)

// SchedulerStats provides statistics about scheduler execution
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// poolBinder is implemented by Query and Singleton fields
type poolBinder interface {
	Init(pool *Pool)
}

type queryExecutor interface {
	Execute()
}

type scheduledSystem struct {
	system  System
	queries []queryExecutor
	stats   SystemStats
}

func (s *scheduledSystem) record(d time.Duration) {
	st := &s.stats
	if st.ExecutionCount == 0 || d < st.MinDuration {
		st.MinDuration = d
	}
	if d > st.MaxDuration {
		st.MaxDuration = d
	}
	st.ExecutionCount++
	st.LastDuration = d
	st.TotalDuration += d
}

// Scheduler runs a fixed list of systems against one pool
// It is not safe for concurrent use; drive it from a single goroutine
type Scheduler struct {
	pool    *Pool
	systems []*scheduledSystem
}

// NewScheduler creates a new scheduler for the given pool
func NewScheduler(pool *Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Register appends system to the run order and binds its exported Query and Singleton fields to the pool
func (s *Scheduler) Register(system System) {
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	s.systems = append(s.systems, &scheduledSystem{
		system:  system,
		queries: s.bindFields(system),
		stats:   SystemStats{Name: t.Name()},
	})
}

func (s *Scheduler) bindFields(system System) []queryExecutor {
	v := reflect.ValueOf(system)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var queries []queryExecutor
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}

		binder, ok := field.Addr().Interface().(poolBinder)
		if !ok {
			continue
		}
		binder.Init(s.pool)

		if q, ok := binder.(queryExecutor); ok {
			queries = append(queries, q)
		}
	}
	return queries
}

// Once executes all registered systems once with the given delta time
// Each system's queries are snapshotted right before it runs, so structural changes applied
// by earlier systems are visible to later ones. Queued commands are flushed at the end
func (s *Scheduler) Once(dt float64) {
	frame := newUpdateFrame(dt, s.pool)

	for _, sys := range s.systems {
		start := time.Now()
		for _, q := range sys.queries {
			q.Execute()
		}
		sys.system.Execute(frame)
		sys.record(time.Since(start))
	}

	frame.Commands.Flush(s.pool)
}

// Run executes all systems at the given interval until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Once(now.Sub(last).Seconds())
			last = now
		}
	}
}

// GetStats returns statistics about system execution
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, 0, len(s.systems)),
	}

	for _, sys := range s.systems {
		st := sys.stats
		if st.ExecutionCount > 0 {
			st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
		}
		stats.Systems = append(stats.Systems, st)
		stats.TotalExecutions += st.ExecutionCount
	}
	return stats
}
