package ecs

import (
	"sort"

	"github.com/google/uuid"
)

// PoolStats is a point-in-time summary of a pool
type PoolStats struct {
	PoolId         uuid.UUID
	EntityCount    int
	MemberCount    int
	PinnedHandles  int
	KindCount      int
	KindBreakdown  []KindStats
	ComponentCount int
}

// KindStats counts the components of one kind
type KindStats struct {
	Name  string
	Count int
}

// CollectStats gathers statistics about the pool. Kinds are named through the registry set with
// SetComponentRegistry, if any, and sorted by descending count
func (p *Pool) CollectStats() PoolStats {
	kinds := p.table.Kinds()
	registry := p.registry.Load()

	stats := PoolStats{
		PoolId:        p.id,
		EntityCount:   p.table.EntityCount(),
		MemberCount:   p.handles.len(),
		PinnedHandles: p.handles.pinnedLen(),
		KindCount:     len(kinds),
		KindBreakdown: make([]KindStats, 0, len(kinds)),
	}
	for kind, n := range kinds {
		stats.KindBreakdown = append(stats.KindBreakdown, KindStats{
			Name:  registry.Name(kind),
			Count: n,
		})
		stats.ComponentCount += n
	}
	sort.Slice(stats.KindBreakdown, func(i, j int) bool {
		a, b := stats.KindBreakdown[i], stats.KindBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	return stats
}
