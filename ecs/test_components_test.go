package ecs_test

import (
	"sync"
	"testing"

	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/ecs/manager"
	"go.uber.org/zap/zaptest"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

// Custom primitive types for testing non-pointer components
type Score int32
type Tag string
type Temperature float64

type Inventory struct {
	Items []string
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Temperature](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[ecs.Location](registry)
	ecs.RegisterComponent[ecs.PrefabOrigin](registry)
	return registry
}

// newTestPool returns the global pool of a fresh manager.
func newTestPool(t testing.TB) (*manager.Manager, *ecs.Pool) {
	return newTestPoolWithConfig(t, ecs.DefaultPoolConfig())
}

func newTestPoolWithConfig(t testing.TB, cfg ecs.PoolConfig) (*manager.Manager, *ecs.Pool) {
	m := manager.New(cfg, zaptest.NewLogger(t))
	m.SetComponentRegistry(newTestRegistry())
	return m, m.GlobalPool()
}

type recordedSignal struct {
	Id     ecs.EntityId
	Signal ecs.Signal
}

// signalRecorder is an ecs.EventSystem that remembers every signal it receives.
type signalRecorder struct {
	mu      sync.Mutex
	signals []recordedSignal
}

func (r *signalRecorder) Send(h *ecs.Handle, signal ecs.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, recordedSignal{Id: h.Id(), Signal: signal})
}

func (r *signalRecorder) For(id ecs.EntityId) []ecs.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ecs.Signal
	for _, s := range r.signals {
		if s.Id == id {
			out = append(out, s.Signal)
		}
	}
	return out
}

func (r *signalRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

// prefabMap is a minimal ecs.PrefabResolver.
type prefabMap map[string]*ecs.Prefab

func (m prefabMap) ResolvePrefab(name string) (*ecs.Prefab, bool) {
	p, ok := m[name]
	return p, ok
}
