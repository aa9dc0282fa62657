package ecs

import "iter"

// Query wraps a View whose matches are snapshotted once per frame
// The Scheduler calls Execute before the owning system runs, so every system iterates a stable
// set of entities even while other goroutines create or destroy them
type Query[T any] struct {
	view *View[T]

	cachedHandles    []*Handle
	cachedComponents []T
	cacheValid       bool
}

// NewQuery creates a new Query over pool
func NewQuery[T any](pool *Pool) *Query[T] {
	return &Query[T]{
		view: NewView[T](pool),
	}
}

// Init initializes or re-initializes the Query with a pool
// Called by the Scheduler during system registration
func (q *Query[T]) Init(pool *Pool) {
	q.view = NewView[T](pool)
	q.cacheValid = false
}

// Execute snapshots the matching handles and component data for this frame
// Called automatically by the Scheduler before the owning system runs
func (q *Query[T]) Execute() {
	q.cachedHandles = q.cachedHandles[:0]
	q.cachedComponents = q.cachedComponents[:0]

	for h, item := range q.view.Iter() {
		q.cachedHandles = append(q.cachedHandles, h)
		q.cachedComponents = append(q.cachedComponents, item)
	}

	q.cacheValid = true
}

// Len returns the number of entities in the current snapshot
func (q *Query[T]) Len() int {
	return len(q.cachedHandles)
}

// Iter returns an iterator over handles and component data
// Panics if Execute() has not been called
func (q *Query[T]) Iter() iter.Seq2[*Handle, T] {
	if !q.cacheValid {
		panic("Query.Iter() called before Query.Execute()")
	}

	return func(yield func(*Handle, T) bool) {
		for i := range q.cachedHandles {
			if !yield(q.cachedHandles[i], q.cachedComponents[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over component data only
// Panics if Execute() has not been called
func (q *Query[T]) Values() iter.Seq[T] {
	if !q.cacheValid {
		panic("Query.Values() called before Query.Execute()")
	}

	return func(yield func(T) bool) {
		for i := range q.cachedComponents {
			if !yield(q.cachedComponents[i]) {
				return
			}
		}
	}
}
