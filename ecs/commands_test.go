package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/entitypool/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsCreate(t *testing.T) {
	_, pool := newTestPool(t)
	cmds := ecs.NewCommands()

	cmds.Create(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	cmds.Create(Position{X: 3, Y: 4})

	// nothing happens until Flush
	assert.Equal(t, 2, cmds.Len())
	assert.Equal(t, 0, pool.GetCountOfEntitiesWith())

	created := cmds.Flush(pool)
	require.Len(t, created, 2)
	assert.Equal(t, 0, cmds.Len())
	assert.Equal(t, 2, pool.GetCountOfEntitiesWith(reflect.TypeFor[Position]()))
	assert.Equal(t, 1, pool.GetCountOfEntitiesWith(reflect.TypeFor[Velocity]()))
}

func TestCommandsDestroy(t *testing.T) {
	_, pool := newTestPool(t)
	h := pool.Create(Position{})

	cmds := ecs.NewCommands()
	cmds.Destroy(h.Id())
	assert.True(t, h.IsActive())

	cmds.Flush(pool)
	assert.False(t, h.IsActive())
}

func TestCommandsSaveAndRemoveComponent(t *testing.T) {
	_, pool := newTestPool(t)
	h := pool.Create(Position{}, Velocity{DX: 1})

	cmds := ecs.NewCommands()
	cmds.SaveComponent(h.Id(), Health{Current: 7})
	cmds.RemoveComponent(h.Id(), reflect.TypeOf(Velocity{}))
	cmds.Flush(pool)

	assert.Equal(t, 7, ecs.ReadComponent[Health](pool, h.Id()).Current)
	assert.False(t, pool.HasComponent(h.Id(), reflect.TypeOf(Velocity{})))
}

func TestCommandsEditsOfDestroyedEntityDropped(t *testing.T) {
	_, pool := newTestPool(t)
	h := pool.Create(Position{})

	cmds := ecs.NewCommands()
	cmds.SaveComponent(h.Id(), Velocity{DX: 5, DY: 10})
	cmds.Destroy(h.Id())
	cmds.Flush(pool)

	assert.False(t, h.IsActive())
	assert.Equal(t, 0, pool.GetCountOfEntitiesWith(reflect.TypeOf(Velocity{})))
}

func TestCommandsCreateWithPrefab(t *testing.T) {
	m, pool := newTestPool(t)
	m.SetPrefabResolver(prefabMap{"goblin": goblinPrefab()})

	cmds := ecs.NewCommands()
	cmds.CreateWith(ecs.CreateOptions{PrefabName: "goblin", Components: []any{Health{Current: 1}}})
	cmds.CreateWith(ecs.CreateOptions{PrefabName: "dragon"})

	created := cmds.Flush(pool)
	require.Len(t, created, 1)
	assert.Equal(t, 1, ecs.ReadComponent[Health](pool, created[0].Id()).Current)
}

func TestCommandsDeferRunsLast(t *testing.T) {
	_, pool := newTestPool(t)
	cmds := ecs.NewCommands()

	var countAtDefer int
	cmds.Defer(func() {
		countAtDefer = pool.GetCountOfEntitiesWith()
	})
	cmds.Create(Position{})
	cmds.Create(Position{})
	cmds.Flush(pool)

	assert.Equal(t, 2, countAtDefer)
}
