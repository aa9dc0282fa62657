package manager_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/ecs/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type Position struct {
	X, Y float32
}

type Health struct {
	Current, Max int
}

func newManager(t *testing.T) *manager.Manager {
	return manager.New(ecs.DefaultPoolConfig(), zaptest.NewLogger(t))
}

func TestManagerIdAllocation(t *testing.T) {
	m := newManager(t)

	a := m.NewEntityId()
	b := m.NewEntityId()
	assert.NotEqual(t, ecs.NullId, a)
	assert.Greater(t, b, a)
	assert.True(t, m.IdLoaded(a))
	assert.True(t, m.IsExistingEntity(b))
	assert.Equal(t, 2, m.LoadedCount())

	assert.False(t, m.RegisterId(ecs.NullId))
	assert.False(t, m.RegisterId(a))
	assert.True(t, m.RegisterId(b+10))
	assert.Equal(t, b+11, m.NewEntityId())

	m.Unregister(a)
	assert.False(t, m.IdLoaded(a))
	assert.False(t, m.RegisterId(a))
	assert.False(t, m.IsExistingEntity(ecs.NullId))
}

func TestManagerConcurrentIdAllocation(t *testing.T) {
	m := newManager(t)

	const workers, perWorker = 8, 500
	ids := make(chan ecs.EntityId, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- m.NewEntityId()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ecs.EntityId]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestManagerPoolOwnership(t *testing.T) {
	m := newManager(t)
	global := m.GlobalPool()
	other := m.NewPool()

	assert.Equal(t, []*ecs.Pool{global, other}, m.Pools())

	a := global.Create(Position{})
	b := other.Create(Position{})

	assert.Same(t, global, m.PoolOf(a.Id()))
	assert.Same(t, other, m.PoolOf(b.Id()))
	assert.Same(t, b, m.GetEntity(b.Id()))

	m.Destroy(b.Id())
	assert.False(t, b.IsActive())
	assert.Nil(t, m.PoolOf(b.Id()))

	// assigning an unloaded id is ignored
	m.AssignToPool(b.Id(), global)
	assert.Nil(t, m.PoolOf(b.Id()))
}

func TestManagerMoveToPool(t *testing.T) {
	m := newManager(t)
	source := m.GlobalPool()
	target := m.NewPool()

	h := source.Create(Position{X: 3}, Health{Current: 7, Max: 9})
	id := h.Id()

	require.True(t, m.MoveToPool(id, target))

	assert.True(t, h.IsActive())
	assert.Same(t, target, m.PoolOf(id))
	assert.Same(t, h, target.GetEntity(id))
	assert.Same(t, h, source.GetEntity(id))
	assert.False(t, source.Contains(id))
	assert.Equal(t, 0, source.GetCountOfEntitiesWith())
	assert.Equal(t, 1, target.GetCountOfEntitiesWith(reflect.TypeFor[Position](), reflect.TypeFor[Health]()))
	assert.Equal(t, 7, ecs.ReadComponent[Health](target, id).Current)

	// moving to the current owner is a no-op
	assert.True(t, m.MoveToPool(id, target))
	assert.Same(t, h, target.GetEntity(id))

	assert.False(t, m.MoveToPool(99999, target))
}

func TestManagerMoveKeepsComponentIdentity(t *testing.T) {
	m := newManager(t)
	target := m.NewPool()

	pos := &Position{X: 1}
	h := m.GlobalPool().Create(pos)
	require.True(t, m.MoveToPool(h.Id(), target))

	pos.X = 42
	assert.Equal(t, float32(42), ecs.ReadComponent[Position](target, h.Id()).X)
}

func TestManagerHandleStrategy(t *testing.T) {
	m := newManager(t)

	var created []ecs.EntityId
	m.SetHandleStrategy(func(id ecs.EntityId) *ecs.Handle {
		created = append(created, id)
		return ecs.NewHandle(id)
	})

	h := m.GlobalPool().Create(Position{})
	assert.Equal(t, []ecs.EntityId{h.Id()}, created)

	m.SetHandleStrategy(nil)
	h2 := m.GlobalPool().Create(Position{})
	assert.True(t, h2.IsActive())
	assert.Len(t, created, 1)
}

type lifecycleLog struct {
	mu     sync.Mutex
	events []string
}

func (l *lifecycleLog) OnEntityCreated(h *ecs.Handle, components []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "created "+h.Id().String())
}

func (l *lifecycleLog) OnEntityDestroyed(id ecs.EntityId, _ *ecs.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "destroyed "+id.String())
}

func TestManagerSubscribers(t *testing.T) {
	m := newManager(t)
	log := &lifecycleLog{}
	m.Subscribe(log)

	h := m.GlobalPool().Create(Position{})
	m.Destroy(h.Id())

	assert.Equal(t, []string{"created 1", "destroyed 1"}, log.events)
}

func TestManagerShutdown(t *testing.T) {
	m := newManager(t)
	log := &lifecycleLog{}
	m.Subscribe(log)
	other := m.NewPool()

	a := m.GlobalPool().Create(Position{})
	b := other.Create(Position{})

	m.Shutdown()

	assert.False(t, a.IsActive())
	assert.False(t, b.IsActive())
	assert.Equal(t, 0, m.LoadedCount())
	assert.Equal(t, 0, other.ActiveEntityCount())
	assert.ElementsMatch(t, []string{"created 1", "created 2", "destroyed 1", "destroyed 2"}, log.events)
}

func TestManagerComponentRegistryReachesNewPools(t *testing.T) {
	m := newManager(t)
	registry := ecs.NewComponentRegistry()
	ecs.RegisterNamedComponent[Position](registry, "pos")
	m.SetComponentRegistry(registry)

	pool := m.NewPool()
	pool.Create(Position{})

	stats := pool.CollectStats()
	require.Len(t, stats.KindBreakdown, 1)
	assert.Equal(t, "pos", stats.KindBreakdown[0].Name)
}
