package ecs

import (
	"iter"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PoolConfig tunes the handle cache of a pool
type PoolConfig struct {
	// HandleCacheSize bounds how many handles the pool keeps strongly reachable
	HandleCacheSize int
	// HandleShards is rounded up to a power of two
	HandleShards int
}

// DefaultPoolConfig returns the configuration used when none is given
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		HandleCacheSize: 4096,
		HandleShards:    16,
	}
}

// Pool owns the component data and handle cache for one set of entities
//
// Lookups and queries may run concurrently with each other and with creation and destruction. Compound
// operations (Build, Destroy) are not transactional across entities
type Pool struct {
	id       uuid.UUID
	host     Host
	log      *zap.Logger
	registry atomic.Pointer[ComponentRegistry]
	table    *ComponentTable
	handles  *handleCache
}

// NewPool creates a pool reporting to host. A nil logger disables logging
func NewPool(host Host, cfg PoolConfig, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	defaults := DefaultPoolConfig()
	if cfg.HandleCacheSize <= 0 {
		cfg.HandleCacheSize = defaults.HandleCacheSize
	}
	if cfg.HandleShards <= 0 {
		cfg.HandleShards = defaults.HandleShards
	}

	id := uuid.New()
	return &Pool{
		id:      id,
		host:    host,
		log:     log.With(zap.Stringer("pool", id)),
		table:   NewComponentTable(),
		handles: newHandleCache(cfg),
	}
}

// Id returns the pool's instance id
func (p *Pool) Id() uuid.UUID { return p.id }

// ComponentTable returns the pool's component store
func (p *Pool) ComponentTable() *ComponentTable { return p.table }

// SetComponentRegistry sets the registry used to name component kinds in statistics
func (p *Pool) SetComponentRegistry(r *ComponentRegistry) { p.registry.Store(r) }

// CreateOptions is the staged configuration every creation entry point reduces to
type CreateOptions struct {
	Prefab     *Prefab
	PrefabName string
	Components []any
	Position   *Vec3
	Rotation   *Quat
	// Id requests an explicit entity id instead of a freshly allocated one
	Id                     EntityId
	WithoutLifecycleEvents bool
}

// CreateWith stages opts on a builder and builds it. An unknown prefab name yields NullHandle
func (p *Pool) CreateWith(opts CreateOptions) *Handle {
	b := p.NewBuilder()
	b.SetSendLifecycleEvents(!opts.WithoutLifecycleEvents)

	if opts.Prefab != nil {
		b.AddPrefab(opts.Prefab)
	} else if opts.PrefabName != "" {
		if !b.AddPrefabByName(opts.PrefabName) {
			p.log.Warn("unable to instantiate unknown prefab", zap.String("prefab", opts.PrefabName))
			return NullHandle
		}
	}

	b.AddComponents(opts.Components...)
	if opts.Position != nil {
		b.SetPosition(*opts.Position)
	}
	if opts.Rotation != nil {
		b.SetRotation(*opts.Rotation)
	}
	if opts.Id != NullId {
		b.SetId(opts.Id)
	}
	return b.Build()
}

// Create builds an entity from the given components, sending lifecycle events
func (p *Pool) Create(components ...any) *Handle {
	return p.CreateWith(CreateOptions{Components: components})
}

// CreateWithoutLifecycleEvents builds an entity without sending events. Lifecycle subscribers are still informed
func (p *Pool) CreateWithoutLifecycleEvents(components ...any) *Handle {
	return p.CreateWith(CreateOptions{Components: components, WithoutLifecycleEvents: true})
}

// CreateFromPrefab builds an entity from the named prefab
func (p *Pool) CreateFromPrefab(name string) *Handle {
	return p.CreateWith(CreateOptions{PrefabName: name})
}

// CreateFromPrefabAt builds an entity from the named prefab placed at pos
func (p *Pool) CreateFromPrefabAt(name string, pos Vec3) *Handle {
	return p.CreateWith(CreateOptions{PrefabName: name, Position: &pos})
}

// CreateFromPrefabWithoutLifecycleEvents builds an entity from the named prefab without sending events
func (p *Pool) CreateFromPrefabWithoutLifecycleEvents(name string) *Handle {
	return p.CreateWith(CreateOptions{PrefabName: name, WithoutLifecycleEvents: true})
}

// CreateFromPrefabObject builds an entity from prefab
func (p *Pool) CreateFromPrefabObject(prefab *Prefab) *Handle {
	return p.CreateWith(CreateOptions{Prefab: prefab})
}

// CreateFromPrefabObjectAt builds an entity from prefab with the given placement
func (p *Pool) CreateFromPrefabObjectAt(prefab *Prefab, pos Vec3, rot Quat) *Handle {
	return p.CreateWith(CreateOptions{Prefab: prefab, Position: &pos, Rotation: &rot})
}

// CreateEntityWithId builds an entity under an explicit id
func (p *Pool) CreateEntityWithId(id EntityId, components ...any) *Handle {
	return p.CreateWith(CreateOptions{Id: id, Components: components})
}

// NewBuilder returns an empty builder committing into this pool
func (p *Pool) NewBuilder() *EntityBuilder {
	return newEntityBuilder(p)
}

// NewBuilderFromPrefab returns a builder seeded from the named prefab. An unknown name is logged and leaves the
// builder empty
func (p *Pool) NewBuilderFromPrefab(name string) *EntityBuilder {
	b := p.NewBuilder()
	if !b.AddPrefabByName(name) {
		p.log.Warn("unable to instantiate unknown prefab", zap.String("prefab", name))
	}
	return b
}

// NewBuilderFromPrefabObject returns a builder seeded from prefab
func (p *Pool) NewBuilderFromPrefabObject(prefab *Prefab) *EntityBuilder {
	b := p.NewBuilder()
	b.AddPrefab(prefab)
	return b
}

// Destroy destroys the entity, sending BeforeDeactivate and BeforeRemove first
// Ids the host does not consider loaded are ignored
func (p *Pool) Destroy(id EntityId) {
	if id == NullId || !p.host.IdLoaded(id) {
		p.log.Warn("destroy of unloaded entity ignored", zap.Uint64("entity", uint64(id)))
		return
	}
	if owner := p.host.PoolOf(id); owner != nil && owner != p {
		owner.Destroy(id)
		return
	}

	h := p.GetEntity(id)
	if events := p.host.EventSystem(); events != nil && h.IsActive() {
		events.Send(h, SignalBeforeDeactivate)
		events.Send(h, SignalBeforeRemove)
	}
	p.host.NotifyComponentRemovalAndEntityDestruction(id, h)
	p.destroy(id, h)
}

// DestroyWithoutEvents destroys the entity behind h without sending signals. Lifecycle subscribers are still
// informed. Inactive handles are ignored; entities owned by another pool are destroyed there
func (p *Pool) DestroyWithoutEvents(h *Handle) {
	if !h.IsActive() {
		return
	}
	if owner := p.host.PoolOf(h.Id()); owner != nil && owner != p {
		owner.DestroyWithoutEvents(h)
		return
	}
	p.host.NotifyComponentRemovalAndEntityDestruction(h.Id(), h)
	p.destroy(h.Id(), h)
}

// destroy unregisters the id before touching the cache so a racing GetEntity either sees the id gone or
// materializes a handle that is invalidated here
func (p *Pool) destroy(id EntityId, h *Handle) {
	p.host.Unregister(id)
	if cached, _ := p.handles.remove(id); cached != nil && cached != h {
		cached.Invalidate()
	}
	h.Invalidate()
	p.table.RemoveAll(id)
}

// GetEntity returns an active handle for id, materializing one through the host if none is cached
// Returns NullHandle for NullId and for ids the host does not know
func (p *Pool) GetEntity(id EntityId) *Handle {
	if id == NullId || !p.host.IsExistingEntity(id) {
		return NullHandle
	}
	if owner := p.host.PoolOf(id); owner != nil && owner != p {
		return owner.GetEntity(id)
	}
	h, _ := p.materialize(id)
	if h.IsNull() {
		// the entity may have moved to another pool since the owner check
		if owner := p.host.PoolOf(id); owner != nil && owner != p {
			return owner.GetEntity(id)
		}
	}
	return h
}

// materialize returns the cached handle for id or creates, registers and assigns a new one
// No handle is created for ids owned by another pool. The assignment happens under the cache shard lock so
// a concurrent move that starts from this pool observes it
func (p *Pool) materialize(id EntityId) (*Handle, bool) {
	h, created := p.handles.getOrCreate(id, func() *Handle {
		if !p.host.IsExistingEntity(id) {
			return nil
		}
		if owner := p.host.PoolOf(id); owner != nil && owner != p {
			return nil
		}
		h := p.host.CreateHandleFor(id)
		if h.IsActive() {
			p.host.AssignToPool(id, p)
		}
		return h
	})
	if h == nil {
		return NullHandle, false
	}
	return h, created
}

// GetEntitiesWith returns a sequence of active handles for every entity having all the given kinds
// With no kinds it yields every entity that has at least one component
func (p *Pool) GetEntitiesWith(kinds ...reflect.Type) iter.Seq[*Handle] {
	ids := p.table.EntitiesWith(kinds...)
	return func(yield func(*Handle) bool) {
		for id := range ids {
			h := p.GetEntity(id)
			if !h.IsActive() {
				continue
			}
			if !yield(h) {
				return
			}
		}
	}
}

// AllEntities returns a sequence of every entity in the pool that has at least one component
func (p *Pool) AllEntities() iter.Seq[*Handle] {
	return p.GetEntitiesWith()
}

// GetCountOfEntitiesWith counts entities having all the given kinds
//
// Zero and one kind are answered from the table's counters in O(1). More kinds fall back to walking
// GetEntitiesWith, which costs one lookup per candidate of the rarest kind
func (p *Pool) GetCountOfEntitiesWith(kinds ...reflect.Type) int {
	switch len(kinds) {
	case 0:
		return p.table.EntityCount()
	case 1:
		return p.table.CountWithKind(kinds[0])
	default:
		n := 0
		for range p.GetEntitiesWith(kinds...) {
			n++
		}
		return n
	}
}

// ActiveEntityCount returns how many ids are registered in the pool's handle map
func (p *Pool) ActiveEntityCount() int {
	return p.handles.len()
}

// Contains reports whether id is registered in the pool's handle map
func (p *Pool) Contains(id EntityId) bool {
	return p.handles.contains(id)
}

// HasComponent reports whether id has a component of the given kind in this pool
func (p *Pool) HasComponent(id EntityId, kind reflect.Type) bool {
	return p.table.Has(id, kind)
}

// GetComponent returns the component of the given kind attached to id, or nil
func (p *Pool) GetComponent(id EntityId, kind reflect.Type) any {
	return p.table.Get(id, kind)
}

// SaveComponent attaches or replaces a component on a live entity of this pool
// Returns false if id is not registered here
func (p *Pool) SaveComponent(id EntityId, component any) bool {
	if !p.handles.contains(id) {
		return false
	}
	p.table.Put(id, component)
	return true
}

// RemoveComponent detaches the component of the given kind from id
func (p *Pool) RemoveComponent(id EntityId, kind reflect.Type) {
	p.table.Remove(id, kind)
}

// PutEntity registers h under id in the handle map
// Inactive handles and ids the host no longer has loaded are ignored
func (p *Pool) PutEntity(id EntityId, h *Handle) {
	if !h.IsActive() || !p.host.IdLoaded(id) {
		return
	}
	p.handles.put(id, h)
	p.host.AssignToPool(id, p)
}

// InsertRef registers an existing handle together with its components, bypassing the builder
// Used when an entity moves in from another pool. Inactive handles and unloaded ids are ignored
func (p *Pool) InsertRef(h *Handle, components ...any) {
	if !h.IsActive() || !p.host.IdLoaded(h.Id()) {
		return
	}
	id := h.Id()
	p.handles.put(id, h)
	p.table.PutAll(id, components)
	p.host.AssignToPool(id, p)
	if !p.host.IdLoaded(id) {
		// destroyed while being inserted
		p.handles.remove(id)
		p.table.RemoveAll(id)
	}
}

// Remove detaches id from this pool without destroying it: components are dropped, the host forgets the pool
// assignment if it still points here, and the handle is returned still active. The bool is false when no handle
// was reachable
func (p *Pool) Remove(id EntityId) (*Handle, bool) {
	p.table.RemoveAll(id)
	if p.host.PoolOf(id) == p {
		p.host.UnassignPool(id)
	}
	h, _ := p.handles.remove(id)
	return h, h != nil
}

// Clear invalidates every live handle and empties the pool. Used at shutdown
func (p *Pool) Clear() {
	for _, h := range p.handles.clear() {
		h.Invalidate()
	}
	p.table.Clear()
}

// MemberIds returns a snapshot of the ids registered in the pool
func (p *Pool) MemberIds() []EntityId {
	return p.handles.ids()
}
