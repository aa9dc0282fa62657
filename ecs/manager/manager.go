// Package manager provides the host entity manager that pools report to
//
// The manager allocates entity ids, tracks which ids are loaded and which pool owns each one, chooses how handles
// are created and relays lifecycle notifications to subscribers. It owns a global pool and can create further
// pools that share its id space; entities migrate between pools with MoveToPool
package manager

import (
	"sync"

	"github.com/kamstrup/intmap"
	"github.com/plus3/entitypool/ecs"
	"go.uber.org/zap"
)

// LifecycleSubscriber is informed of every entity creation and destruction, including those made without
// lifecycle events
type LifecycleSubscriber interface {
	OnEntityCreated(h *ecs.Handle, components []any)
	OnEntityDestroyed(id ecs.EntityId, h *ecs.Handle)
}

// HandleStrategy creates the handle for an entity id
type HandleStrategy func(id ecs.EntityId) *ecs.Handle

// Manager implements ecs.Host
type Manager struct {
	log *zap.Logger
	cfg ecs.PoolConfig

	mu       sync.RWMutex
	lastId   uint64
	loaded   *intmap.Map[ecs.EntityId, *ecs.Pool]
	pools    []*ecs.Pool
	global   *ecs.Pool
	prefabs  ecs.PrefabResolver
	events   ecs.EventSystem
	strategy HandleStrategy
	registry *ecs.ComponentRegistry

	subMu       sync.RWMutex
	subscribers []LifecycleSubscriber
}

// New creates a manager and its global pool. A nil logger disables logging
func New(cfg ecs.PoolConfig, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		log:      log,
		cfg:      cfg,
		loaded:   intmap.New[ecs.EntityId, *ecs.Pool](1024),
		strategy: ecs.NewHandle,
	}
	m.global = m.NewPool()
	return m
}

// GlobalPool returns the pool created with the manager
func (m *Manager) GlobalPool() *ecs.Pool {
	return m.global
}

// NewPool creates a pool sharing this manager's id space
func (m *Manager) NewPool() *ecs.Pool {
	pool := ecs.NewPool(m, m.cfg, m.log)

	m.mu.Lock()
	defer m.mu.Unlock()
	pool.SetComponentRegistry(m.registry)
	m.pools = append(m.pools, pool)
	return pool
}

// Pools returns every pool created by the manager, global pool first
func (m *Manager) Pools() []*ecs.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*ecs.Pool(nil), m.pools...)
}

// SetPrefabResolver sets the resolver used by builders. May be nil
func (m *Manager) SetPrefabResolver(r ecs.PrefabResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefabs = r
}

// SetEventSystem sets the event system lifecycle signals go to. May be nil
func (m *Manager) SetEventSystem(e ecs.EventSystem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = e
}

// SetHandleStrategy replaces the handle-creation strategy. A nil strategy restores ecs.NewHandle
func (m *Manager) SetHandleStrategy(s HandleStrategy) {
	if s == nil {
		s = ecs.NewHandle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = s
}

// SetComponentRegistry names component kinds in the statistics of every pool
func (m *Manager) SetComponentRegistry(r *ecs.ComponentRegistry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = r
	for _, pool := range m.pools {
		pool.SetComponentRegistry(r)
	}
}

// Subscribe registers a lifecycle subscriber
func (m *Manager) Subscribe(s LifecycleSubscriber) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, s)
}

// NewEntityId allocates a fresh id and marks it loaded
func (m *Manager) NewEntityId() ecs.EntityId {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastId++
	id := ecs.EntityId(m.lastId)
	m.loaded.Put(id, nil)
	return id
}

// RegisterId marks an explicit id loaded and moves the allocator past it
// Only ids above every id handed out so far are accepted, so destroyed ids are never revived
func (m *Manager) RegisterId(id ecs.EntityId) bool {
	if id == ecs.NullId {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(id) <= m.lastId {
		return false
	}
	m.lastId = uint64(id)
	m.loaded.Put(id, nil)
	return true
}

// IdLoaded reports whether id is currently loaded
func (m *Manager) IdLoaded(id ecs.EntityId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded.Has(id)
}

// IsExistingEntity reports whether id refers to a live entity
// All live entities are loaded; unloading to storage is not supported
func (m *Manager) IsExistingEntity(id ecs.EntityId) bool {
	return id != ecs.NullId && m.IdLoaded(id)
}

// PoolOf returns the pool id is assigned to, or nil
func (m *Manager) PoolOf(id ecs.EntityId) *ecs.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, _ := m.loaded.Get(id)
	return pool
}

// AssignToPool records pool as the owner of a loaded id. Unloaded ids are ignored
func (m *Manager) AssignToPool(id ecs.EntityId, pool *ecs.Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded.Has(id) {
		return
	}
	m.loaded.Put(id, pool)
}

// UnassignPool clears the owner of id, keeping it loaded
func (m *Manager) UnassignPool(id ecs.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded.Has(id) {
		m.loaded.Put(id, nil)
	}
}

// Unregister forgets a destroyed id
func (m *Manager) Unregister(id ecs.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded.Del(id)
}

// CreateHandleFor creates a handle through the configured strategy
func (m *Manager) CreateHandleFor(id ecs.EntityId) *ecs.Handle {
	m.mu.RLock()
	strategy := m.strategy
	m.mu.RUnlock()
	return strategy(id)
}

// NotifyEntityCreated informs every lifecycle subscriber
func (m *Manager) NotifyEntityCreated(h *ecs.Handle, components []any) {
	for _, s := range m.subscriberSnapshot() {
		s.OnEntityCreated(h, components)
	}
}

// NotifyComponentRemovalAndEntityDestruction informs every lifecycle subscriber
func (m *Manager) NotifyComponentRemovalAndEntityDestruction(id ecs.EntityId, h *ecs.Handle) {
	for _, s := range m.subscriberSnapshot() {
		s.OnEntityDestroyed(id, h)
	}
}

func (m *Manager) subscriberSnapshot() []LifecycleSubscriber {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return m.subscribers
}

// PrefabResolver returns the configured resolver, or nil
func (m *Manager) PrefabResolver() ecs.PrefabResolver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefabs
}

// EventSystem returns the configured event system, or nil
func (m *Manager) EventSystem() ecs.EventSystem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events
}

// LoadedCount returns the number of loaded ids
func (m *Manager) LoadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded.Len()
}

// GetEntity returns the handle for id from whichever pool owns it, falling back to the global pool
func (m *Manager) GetEntity(id ecs.EntityId) *ecs.Handle {
	if pool := m.PoolOf(id); pool != nil {
		return pool.GetEntity(id)
	}
	return m.global.GetEntity(id)
}

// Destroy destroys id in whichever pool owns it
func (m *Manager) Destroy(id ecs.EntityId) {
	if pool := m.PoolOf(id); pool != nil {
		pool.Destroy(id)
		return
	}
	m.global.Destroy(id)
}

// MoveToPool migrates a loaded entity and its components into target. The entity keeps its id and handle
// Returns false if id is not loaded
//
// The target is assigned before the source lets go, so concurrent lookups always find the entity in one of
// the two pools. Component edits made in the source during the move may be lost
func (m *Manager) MoveToPool(id ecs.EntityId, target *ecs.Pool) bool {
	if !m.IdLoaded(id) {
		m.log.Warn("move of unloaded entity ignored", zap.Uint64("entity", uint64(id)))
		return false
	}
	source := m.PoolOf(id)
	if source == target {
		return true
	}

	var (
		h          *ecs.Handle
		components []any
	)
	if source != nil {
		h = source.GetEntity(id)
		components = source.ComponentTable().ComponentsOf(id)
	}
	if !h.IsActive() {
		h = m.CreateHandleFor(id)
	}
	target.InsertRef(h, components...)
	if source != nil {
		source.Remove(id)
	}
	return true
}

// Shutdown destroys every loaded entity without events and clears every pool
func (m *Manager) Shutdown() {
	for _, pool := range m.Pools() {
		for _, id := range pool.MemberIds() {
			pool.DestroyWithoutEvents(pool.GetEntity(id))
		}
		pool.Clear()
	}
}
