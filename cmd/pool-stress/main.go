package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/ecs/event"
	"github.com/plus3/entitypool/ecs/manager"
	"github.com/plus3/entitypool/ecs/prefab"
	"github.com/plus3/entitypool/internal/config"
	"github.com/plus3/entitypool/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Velocity struct {
	DX, DY, DZ float32
}

type Health struct {
	Current int `yaml:"current"`
	Max     int `yaml:"max"`
}

type Name struct {
	Value string `yaml:"value"`
}

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[ecs.Location](registry)
	ecs.RegisterComponent[ecs.PrefabOrigin](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Clock](registry)
	return registry
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file.")
	duration := flag.Duration("duration", 0, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 0, "The initial number of entities to create.")
	workers := flag.Int("workers", 0, "The number of concurrent workers.")
	tick := flag.Duration("tick", 0, "Interval between scheduler frames.")
	prefabDir := flag.String("prefabs", "", "Directory of YAML prefab definitions.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *duration > 0 {
		cfg.Stress.Duration = *duration
	}
	if *entityCount > 0 {
		cfg.Stress.Entities = *entityCount
	}
	if *workers > 0 {
		cfg.Stress.Workers = *workers
	}
	if *tick > 0 {
		cfg.Stress.Tick = *tick
	}
	if *prefabDir != "" {
		cfg.Prefabs.Dir = *prefabDir
	}
	if *profileMode != "" {
		cfg.Stress.Profile = *profileMode
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	switch cfg.Stress.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatal("unknown profile mode", zap.String("profile", cfg.Stress.Profile))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("stress test failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting pool stress test",
		zap.Int("entities", cfg.Stress.Entities),
		zap.Int("workers", cfg.Stress.Workers),
		zap.Duration("duration", cfg.Stress.Duration))

	// 1. Setup registry, manager, prefabs and events
	registry := newRegistry()
	m := manager.New(cfg.Pool.EcsPoolConfig(), log)
	m.SetComponentRegistry(registry)

	var prefabNames []string
	if cfg.Prefabs.Dir != "" {
		library := prefab.NewLibrary(registry, log)
		n, err := library.LoadDir(cfg.Prefabs.Dir)
		if err != nil {
			return err
		}
		log.Info("loaded prefabs", zap.Int("count", n), zap.String("dir", cfg.Prefabs.Dir))
		m.SetPrefabResolver(library)
		prefabNames = library.Names()
	}

	var signals atomic.Int64
	bus := event.NewBus(log)
	bus.SubscribeAll(func(*ecs.Handle, ecs.Signal) {
		signals.Add(1)
	})
	m.SetEventSystem(bus)

	pools := []*ecs.Pool{m.GlobalPool(), m.NewPool()}

	// 2. Populate pools with initial entities
	for i := 0; i < cfg.Stress.Entities; i++ {
		spawnRandomEntity(pools[i%len(pools)], prefabNames)
	}
	log.Info("population complete", zap.Int("loaded", m.LoadedCount()))

	// 3. Run the workers
	report := &Report{
		Duration: cfg.Stress.Duration,
		Entities: cfg.Stress.Entities,
		Workers:  cfg.Stress.Workers,
		Prefabs:  len(prefabNames),
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Stress.Duration)
	defer cancel()

	results := make([]workerResult, cfg.Stress.Workers)
	g, ctx := errgroup.WithContext(ctx)

	var scheduler *ecs.Scheduler
	var clock *ecs.Singleton[Clock]
	drift := &DriftSystem{}
	if cfg.Stress.Tick > 0 {
		clock = ecs.NewSingleton[Clock](m.GlobalPool())
		scheduler = ecs.NewScheduler(m.GlobalPool())
		scheduler.Register(&ClockSystem{})
		scheduler.Register(drift)
		g.Go(func() error {
			scheduler.Run(ctx, cfg.Stress.Tick)
			return nil
		})
	}

	for w := range results {
		g.Go(func() error {
			results[w] = runWorker(ctx, m, pools, prefabNames)
			return nil
		})
	}

	startTime := time.Now()
	if err := g.Wait(); err != nil {
		return err
	}
	report.TotalTime = time.Since(startTime)

	for _, r := range results {
		report.Ops.merge(r.ops)
		report.Lookup.Samples = append(report.Lookup.Samples, r.lookups...)
		report.Create.Samples = append(report.Create.Samples, r.creates...)
	}
	report.Lookup.Finalize()
	report.Create.Finalize()
	report.Signals = signals.Load()
	if scheduler != nil {
		report.Frames = clock.Get().Frames
		report.Drifted = drift.Moved
		report.Systems = scheduler.GetStats().Systems
	}
	runtime.ReadMemStats(&report.MemStatsEnd)
	for _, pool := range pools {
		report.Pools = append(report.Pools, pool.CollectStats())
	}

	log.Info("stress run finished", zap.Int64("operations", report.Ops.Total()))

	// 4. Generate report to console
	fmt.Println("\n\n--- Pool Stress Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Println("--- End of Report ---")

	m.Shutdown()
	return nil
}

type workerResult struct {
	ops     OpCounts
	lookups []time.Duration
	creates []time.Duration
}

// runWorker mixes creation, lookup, migration, iteration and destruction until ctx is done
// Timings are sampled rather than recorded for every operation
func runWorker(ctx context.Context, m *manager.Manager, pools []*ecs.Pool, prefabNames []string) workerResult {
	var res workerResult
	owned := make([]ecs.EntityId, 0, 1024)
	velocity := ecs.KindOf[Velocity]()
	health := ecs.KindOf[Health]()

	for i := 0; ; i++ {
		if i%64 == 0 && ctx.Err() != nil {
			return res
		}
		pool := pools[rand.IntN(len(pools))]

		switch op := rand.IntN(100); {
		case op < 30:
			start := time.Now()
			h := spawnRandomEntity(pool, prefabNames)
			if i%16 == 0 {
				res.creates = append(res.creates, time.Since(start))
			}
			if h.IsActive() {
				owned = append(owned, h.Id())
			}
			res.ops.Creates++
		case op < 75:
			if len(owned) == 0 {
				continue
			}
			id := owned[rand.IntN(len(owned))]
			start := time.Now()
			h := m.GetEntity(id)
			if i%16 == 0 {
				res.lookups = append(res.lookups, time.Since(start))
			}
			// only this worker touches the entities it owns
			if owner := m.PoolOf(id); owner != nil && h.IsActive() {
				if hp := ecs.ReadComponent[Health](owner, id); hp != nil && hp.Current > 0 {
					hp.Current--
				}
			}
			res.ops.Lookups++
		case op < 80:
			if len(owned) == 0 {
				continue
			}
			m.MoveToPool(owned[rand.IntN(len(owned))], pool)
			res.ops.Moves++
		case op < 85:
			n := 0
			for range pool.GetEntitiesWith(velocity, health) {
				n++
				if n >= 256 {
					break
				}
			}
			res.ops.Iterations++
		default:
			if len(owned) == 0 {
				continue
			}
			idx := rand.IntN(len(owned))
			m.Destroy(owned[idx])
			owned[idx] = owned[len(owned)-1]
			owned = owned[:len(owned)-1]
			res.ops.Destroys++
		}
	}
}

func spawnRandomEntity(pool *ecs.Pool, prefabNames []string) *ecs.Handle {
	pos := ecs.Vec3{X: rand.Float32() * 1000, Y: rand.Float32() * 1000}
	if len(prefabNames) > 0 && rand.IntN(2) == 0 {
		return pool.CreateFromPrefabAt(prefabNames[rand.IntN(len(prefabNames))], pos)
	}

	b := pool.NewBuilder().SetPosition(pos)
	if rand.IntN(2) == 0 {
		b.AddComponent(Velocity{DX: rand.Float32(), DY: rand.Float32()})
	}
	if rand.IntN(3) > 0 {
		b.AddComponent(Health{Current: 100, Max: 100})
	}
	if rand.IntN(4) == 0 {
		b.AddComponent(Name{Value: "entity"})
	}
	return b.Build()
}
