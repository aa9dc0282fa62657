package ecs

import "reflect"

// Host is the entity manager a Pool reports to. It assigns ids, tracks which ids are loaded and which pool owns
// them, and decides how handles are created. See the manager package for the reference implementation
type Host interface {
	// NewEntityId allocates a fresh id and marks it loaded
	NewEntityId() EntityId
	// RegisterId marks an explicitly chosen id as loaded. Returns false if it is already in use
	RegisterId(id EntityId) bool

	IdLoaded(id EntityId) bool
	IsExistingEntity(id EntityId) bool

	// PoolOf returns the pool the id is assigned to, or nil
	PoolOf(id EntityId) *Pool
	AssignToPool(id EntityId, pool *Pool)
	UnassignPool(id EntityId)
	// Unregister forgets a destroyed id. The id is never handed out again
	Unregister(id EntityId)

	// CreateHandleFor is the handle-creation strategy used when a pool materializes a handle
	CreateHandleFor(id EntityId) *Handle

	// NotifyEntityCreated informs lifecycle subscribers, whether or not lifecycle events are sent
	NotifyEntityCreated(h *Handle, components []any)
	NotifyComponentRemovalAndEntityDestruction(id EntityId, h *Handle)

	// PrefabResolver and EventSystem may return nil
	PrefabResolver() PrefabResolver
	EventSystem() EventSystem
}

// PrefabResolver looks up prefab templates by name
// Implementations log a warning for unknown names rather than failing
type PrefabResolver interface {
	ResolvePrefab(name string) (*Prefab, bool)
}

// EventSystem delivers lifecycle signals for an entity
type EventSystem interface {
	Send(h *Handle, signal Signal)
}

// Prefab is a named template of default components
type Prefab struct {
	Name       string
	Parent     string
	Components []any
}

// Component returns the prefab's component of the given kind, or nil
func (p *Prefab) Component(kind reflect.Type) any {
	for _, c := range p.Components {
		if kindOf(c) == kind {
			return c
		}
	}
	return nil
}
