package ecs_test

import (
	"fmt"
	"reflect"

	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/ecs/event"
	"github.com/plus3/entitypool/ecs/manager"
)

// ExamplePool shows the entity lifecycle. Pools hand out handles that stay valid until
// the entity is destroyed, and lifecycle signals go through the manager's event system.
func ExamplePool() {
	m := manager.New(ecs.DefaultPoolConfig(), nil)
	bus := event.NewBus(nil)
	bus.SubscribeAll(func(h *ecs.Handle, signal ecs.Signal) {
		fmt.Printf("%s %s\n", signal, h)
	})
	m.SetEventSystem(bus)
	pool := m.GlobalPool()

	h := pool.Create(Position{X: 1, Y: 2}, Health{Current: 10, Max: 10})
	fmt.Println("with health:", pool.GetCountOfEntitiesWith(reflect.TypeFor[Health]()))

	pool.Destroy(h.Id())
	fmt.Println("after destroy:", h, pool.GetCountOfEntitiesWith())

	// Output:
	// OnAdded EntityRef{1}
	// OnActivated EntityRef{1}
	// with health: 1
	// BeforeDeactivate EntityRef{1}
	// BeforeRemove EntityRef{1}
	// after destroy: EntityRef{1, invalid} 0
}

// ExampleEntityBuilder stages a prefab, an override and a placement before committing
// the entity in one step.
func ExampleEntityBuilder() {
	m := manager.New(ecs.DefaultPoolConfig(), nil)
	m.SetPrefabResolver(prefabMap{
		"goblin": {
			Name:       "goblin",
			Components: []any{&Health{Current: 30, Max: 30}, &Name{Value: "goblin"}},
		},
	})
	pool := m.GlobalPool()

	h := pool.NewBuilderFromPrefab("goblin").
		AddComponent(Health{Current: 5, Max: 30}).
		SetPosition(ecs.Vec3{X: 4, Y: 2}).
		Build()

	health := ecs.ReadComponent[Health](pool, h.Id())
	loc := ecs.ReadComponent[ecs.Location](pool, h.Id())
	origin := ecs.ReadComponent[ecs.PrefabOrigin](pool, h.Id())
	fmt.Printf("%s health %d/%d at (%.0f, %.0f) from %s\n",
		ecs.ReadComponent[Name](pool, h.Id()).Value, health.Current, health.Max,
		loc.Position.X, loc.Position.Y, origin.Name)

	// Output:
	// goblin health 5/30 at (4, 2) from goblin
}
