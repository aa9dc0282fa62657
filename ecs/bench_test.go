package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/ecs/manager"
	"go.uber.org/zap"
)

func newBenchPool(cfg ecs.PoolConfig) *ecs.Pool {
	m := manager.New(cfg, zap.NewNop())
	return m.GlobalPool()
}

func BenchmarkCreate(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Create(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5})
	}
}

func BenchmarkCreateWithMultipleComponents(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Create(
			Position{X: 1.0, Y: 2.0},
			Velocity{DX: 0.5, DY: 0.5},
			Health{Current: 100, Max: 100},
			Name{Value: "Entity"},
		)
	}
}

func BenchmarkCreateFromPrefab(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())
	prefab := goblinPrefab()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.CreateFromPrefabObjectAt(prefab, ecs.Vec3{X: float32(i)}, ecs.IdentityQuat)
	}
}

func BenchmarkDestroy(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	ids := make([]ecs.EntityId, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = pool.Create(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5}).Id()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Destroy(ids[i])
	}
}

func BenchmarkGetEntityCached(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())
	id := pool.Create(Position{X: 1.0, Y: 2.0}).Id()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.GetEntity(id)
	}
}

// BenchmarkGetEntityEvicted cycles through far more entities than the cache pins, so most lookups
// regenerate or promote a handle.
func BenchmarkGetEntityEvicted(b *testing.B) {
	pool := newBenchPool(ecs.PoolConfig{HandleCacheSize: 64, HandleShards: 4})

	ids := make([]ecs.EntityId, 10000)
	for i := range ids {
		ids[i] = pool.Create(Score(i)).Id()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.GetEntity(ids[i%len(ids)])
	}
}

func BenchmarkGetEntityParallel(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	ids := make([]ecs.EntityId, 1024)
	for i := range ids {
		ids[i] = pool.Create(Score(i)).Id()
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = pool.GetEntity(ids[i%len(ids)])
			i++
		}
	})
}

func BenchmarkGetComponent(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())
	id := pool.Create(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5}).Id()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ecs.ReadComponent[Position](pool, id)
	}
}

func BenchmarkSaveComponent(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	ids := make([]ecs.EntityId, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = pool.Create(Position{X: 1.0, Y: 2.0}).Id()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.SaveComponent(ids[i], Velocity{DX: 0.5, DY: 0.5})
	}
}

func BenchmarkRemoveComponent(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	ids := make([]ecs.EntityId, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = pool.Create(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5}).Id()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.RemoveComponent(ids[i], reflect.TypeOf(Velocity{}))
	}
}

func BenchmarkCountOneKind(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())
	for i := 0; i < 10000; i++ {
		pool.Create(Position{X: float32(i)}, Velocity{})
	}
	kind := reflect.TypeFor[Position]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.GetCountOfEntitiesWith(kind)
	}
}

func BenchmarkCountTwoKinds(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())
	for i := 0; i < 10000; i++ {
		pool.Create(Position{X: float32(i)}, Velocity{})
	}
	position, velocity := reflect.TypeFor[Position](), reflect.TypeFor[Velocity]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.GetCountOfEntitiesWith(position, velocity)
	}
}

func BenchmarkViewFill(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	type PosVel struct {
		*Position
		*Velocity
	}

	view := ecs.NewView[PosVel](pool)
	id := pool.Create(Position{X: 1.0, Y: 2.0}, Velocity{DX: 0.5, DY: 0.5}).Id()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var pv PosVel
		view.Fill(id, &pv)
	}
}

func BenchmarkViewIter(b *testing.B) {
	pool := newBenchPool(ecs.DefaultPoolConfig())

	type PosVel struct {
		*Position
		*Velocity
	}

	for i := 0; i < 1000; i++ {
		pool.Create(Position{X: float32(i), Y: float32(i)}, Velocity{DX: 0.5, DY: 0.5})
	}

	view := ecs.NewView[PosVel](pool)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, pv := range view.Iter() {
			_ = pv
		}
	}
}
