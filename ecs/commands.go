package ecs

import "reflect"

// Commands provides a buffer for deferred pool operations applied by Flush
// Systems iterating a View queue structural changes here instead of mutating the pool mid-iteration
type Commands struct {
	creates  []CreateOptions
	destroys []EntityId
	saves    []saveComponentCommand
	removes  []removeComponentCommand
	defers   []func()
}

// NewCommands returns an empty command buffer
func NewCommands() *Commands {
	return &Commands{}
}

type saveComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Create queues an entity creation with the given components
func (c *Commands) Create(components ...any) {
	c.creates = append(c.creates, CreateOptions{Components: components})
}

// CreateWith queues an entity creation from a full set of options
func (c *Commands) CreateWith(opts CreateOptions) {
	c.creates = append(c.creates, opts)
}

// Destroy queues an entity destruction
func (c *Commands) Destroy(entity EntityId) {
	c.destroys = append(c.destroys, entity)
}

// SaveComponent queues a component attach-or-replace
func (c *Commands) SaveComponent(entity EntityId, component any) {
	c.saves = append(c.saves, saveComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Len returns the number of queued operations
func (c *Commands) Len() int {
	return len(c.creates) + len(c.destroys) + len(c.saves) + len(c.removes) + len(c.defers)
}

// Flush applies all queued operations to pool in the order destroys, removes, saves, creates, defers,
// and resets the buffer. Edits queued for an entity destroyed in the same flush are dropped
// Returns the handles of the created entities
func (c *Commands) Flush(pool *Pool) []*Handle {
	destroyed := make(map[EntityId]bool, len(c.destroys))

	for _, id := range c.destroys {
		pool.Destroy(id)
		destroyed[id] = true
	}

	for _, cmd := range c.removes {
		if !destroyed[cmd.entity] {
			pool.RemoveComponent(cmd.entity, cmd.compType)
		}
	}

	for _, cmd := range c.saves {
		if !destroyed[cmd.entity] {
			pool.SaveComponent(cmd.entity, cmd.component)
		}
	}

	created := make([]*Handle, 0, len(c.creates))
	for _, opts := range c.creates {
		if h := pool.CreateWith(opts); h.IsActive() {
			created = append(created, h)
		}
	}

	for _, fn := range c.defers {
		fn()
	}

	c.creates = c.creates[:0]
	c.destroys = c.destroys[:0]
	c.saves = c.saves[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
	return created
}
