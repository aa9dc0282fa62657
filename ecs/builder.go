package ecs

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// EntityBuilder stages a component set and commits it into its pool with Build
// Nothing about the entity is visible to the rest of the system until Build installs the full set
//
// Example usage:
//
//	h := pool.NewBuilderFromPrefab("goblin").
//	    AddComponent(Health{Current: 5, Max: 30}).
//	    SetPosition(ecs.Vec3{X: 4, Y: 2}).
//	    Build()
type EntityBuilder struct {
	mu   sync.Mutex
	pool *Pool

	components map[reflect.Type]any
	prefab     string

	id         EntityId
	position   *Vec3
	rotation   *Quat
	sendEvents bool
	built      bool
}

func newEntityBuilder(pool *Pool) *EntityBuilder {
	return &EntityBuilder{
		pool:       pool,
		components: make(map[reflect.Type]any),
		sendEvents: true,
	}
}

// AddComponent stages a component, replacing any staged component of the same kind
func (b *EntityBuilder) AddComponent(component any) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stageLocked(component)
	return b
}

// AddComponents stages every component in order; later components of a kind replace earlier ones
func (b *EntityBuilder) AddComponents(components ...any) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range components {
		b.stageLocked(c)
	}
	return b
}

func (b *EntityBuilder) stageLocked(component any) {
	boxed, kind := boxComponent(component)
	if boxed == nil {
		return
	}
	b.components[kind] = boxed
}

// AddPrefab merges copies of the prefab's components into the staged set. Components already staged win over the
// prefab's defaults. Returns false for a nil prefab
func (b *EntityBuilder) AddPrefab(prefab *Prefab) bool {
	if prefab == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range prefab.Components {
		kind := kindOf(c)
		if kind == nil {
			continue
		}
		if _, staged := b.components[kind]; staged {
			continue
		}
		if clone := cloneComponent(c); clone != nil {
			b.components[kind] = clone
		}
	}
	if b.prefab == "" {
		b.prefab = prefab.Name
	}
	return true
}

// AddPrefabByName resolves name through the host's prefab resolver and merges it like AddPrefab
// Returns false, leaving the builder unchanged, when the prefab cannot be resolved
func (b *EntityBuilder) AddPrefabByName(name string) bool {
	resolver := b.pool.host.PrefabResolver()
	if resolver == nil {
		b.pool.log.Warn("no prefab resolver configured", zap.String("prefab", name))
		return false
	}
	prefab, ok := resolver.ResolvePrefab(name)
	if !ok {
		return false
	}
	return b.AddPrefab(prefab)
}

// SetSendLifecycleEvents controls whether Build sends OnAdded and OnActivated. Enabled by default
func (b *EntityBuilder) SetSendLifecycleEvents(send bool) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendEvents = send
	return b
}

// SetId requests an explicit id. Without one, Build allocates a fresh id from the host
func (b *EntityBuilder) SetId(id EntityId) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = id
	return b
}

// SetPosition overrides the position of the staged Location, or of a synthesized one
func (b *EntityBuilder) SetPosition(pos Vec3) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = &pos
	return b
}

// SetRotation overrides the rotation of the staged Location, or of a synthesized one
func (b *EntityBuilder) SetRotation(rot Quat) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotation = &rot
	return b
}

// GetComponent returns the staged component of the given kind, or nil
func (b *EntityBuilder) GetComponent(kind reflect.Type) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.components[kind]
}

// HasComponent reports whether a component of the given kind is staged
func (b *EntityBuilder) HasComponent(kind reflect.Type) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.components[kind]
	return ok
}

// RemoveComponent unstages the component of the given kind
func (b *EntityBuilder) RemoveComponent(kind reflect.Type) *EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.components, kind)
	return b
}

// Components returns the staged components ordered by kind name
func (b *EntityBuilder) Components() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orderedLocked()
}

func (b *EntityBuilder) orderedLocked() []any {
	kinds := make([]reflect.Type, 0, len(b.components))
	for kind := range b.components {
		kinds = append(kinds, kind)
	}
	sort.Sort(byTypeName(kinds))

	components := make([]any, len(kinds))
	for i, kind := range kinds {
		components[i] = b.components[kind]
	}
	return components
}

// applySpatialLocked folds the position and rotation overrides into the staged Location,
// synthesizing one when none is staged
func (b *EntityBuilder) applySpatialLocked() {
	if b.position == nil && b.rotation == nil {
		return
	}

	kind := reflect.TypeFor[Location]()
	loc, ok := b.components[kind].(*Location)
	if !ok {
		loc = &Location{Rotation: IdentityQuat}
		b.components[kind] = loc
	}
	if b.position != nil {
		loc.Position = *b.position
	}
	if b.rotation != nil {
		loc.Rotation = *b.rotation
	}
}

// Build commits the staged components into the pool and returns the new entity's handle
//
// Components are installed before the handle is registered, and lifecycle events are only sent once the entity
// is fully in place. A builder builds once; later calls, and explicit ids already in use, yield NullHandle
func (b *EntityBuilder) Build() *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	pool := b.pool
	host := pool.host

	if b.built {
		pool.log.Warn("entity builder reused after Build")
		return NullHandle
	}

	id := b.id
	if id != NullId {
		if !host.RegisterId(id) {
			pool.log.Warn("entity id already in use", zap.Uint64("entity", uint64(id)))
			return NullHandle
		}
	} else {
		id = host.NewEntityId()
	}
	b.built = true

	b.applySpatialLocked()
	if b.prefab != "" {
		if _, staged := b.components[reflect.TypeFor[PrefabOrigin]()]; !staged {
			b.components[reflect.TypeFor[PrefabOrigin]()] = &PrefabOrigin{Name: b.prefab}
		}
	}

	components := b.orderedLocked()
	pool.table.PutAll(id, components)

	h, _ := pool.materialize(id)
	if !h.IsActive() {
		pool.log.Warn("entity vanished during build", zap.Uint64("entity", uint64(id)))
		pool.table.RemoveAll(id)
		return NullHandle
	}

	host.NotifyEntityCreated(h, components)
	if events := host.EventSystem(); b.sendEvents && events != nil {
		events.Send(h, SignalOnAdded)
		events.Send(h, SignalOnActivated)
	}
	return h
}
