package ecs

import "reflect"

// Singleton provides access to a component kind that exists on exactly one entity of a pool
// Use this for global simulation state such as clocks or configuration that systems share
type Singleton[T any] struct {
	pool   *Pool
	handle *Handle
}

// NewSingleton returns an accessor for the T component of pool
// If no entity carries a T yet, one is created without lifecycle events holding the initializer
// or a zero value. This guarantees the singleton exists in the pool after the call
func NewSingleton[T any](pool *Pool, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{}
	s.Init(pool)
	if s.handle.IsActive() {
		return s
	}

	var value T
	if len(initializer) > 0 {
		value = initializer[0]
	}
	s.handle = pool.CreateWithoutLifecycleEvents(value)
	return s
}

// Init binds the Singleton to pool and locates the carrying entity, if any
// This is called automatically by the Scheduler during system registration
func (s *Singleton[T]) Init(pool *Pool) {
	s.pool = pool
	s.locate()
}

func (s *Singleton[T]) locate() {
	s.handle = NullHandle
	if s.pool == nil {
		return
	}
	for h := range s.pool.GetEntitiesWith(reflect.TypeFor[T]()) {
		s.handle = h
		return
	}
}

// Handle returns the entity carrying the singleton, or NullHandle
func (s *Singleton[T]) Handle() *Handle {
	if s.handle == nil || !s.handle.IsActive() {
		s.locate()
	}
	return s.handle
}

// Get returns a pointer to the singleton component, or nil if no entity carries it
func (s *Singleton[T]) Get() *T {
	h := s.Handle()
	if !h.IsActive() {
		return nil
	}
	return ReadComponent[T](s.pool, h.Id())
}

// Exists returns true if an entity in the pool carries the singleton component
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}
