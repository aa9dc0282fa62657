package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/entitypool/ecs"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Entities int
	Workers  int
	Prefabs  int

	// Results
	TotalTime     time.Duration
	Ops           OpCounts
	Lookup        Stats
	Create        Stats
	Signals       int64
	Frames        int64
	Drifted       int64
	Systems       []ecs.SystemStats
	Pools         []ecs.PoolStats
	MemStatsStart runtime.MemStats
	MemStatsEnd   runtime.MemStats
}

type OpCounts struct {
	Creates    int64
	Lookups    int64
	Moves      int64
	Iterations int64
	Destroys   int64
}

func (o *OpCounts) merge(other OpCounts) {
	o.Creates += other.Creates
	o.Lookups += other.Lookups
	o.Moves += other.Moves
	o.Iterations += other.Iterations
	o.Destroys += other.Destroys
}

func (o OpCounts) Total() int64 {
	return o.Creates + o.Lookups + o.Moves + o.Iterations + o.Destroys
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	slices.Sort(s.Samples)
	var total time.Duration
	for _, sample := range s.Samples {
		total += sample
	}
	s.Min = s.Samples[0]
	s.Max = s.Samples[len(s.Samples)-1]
	s.Avg = total / time.Duration(len(s.Samples))
	s.P99 = s.Samples[len(s.Samples)*99/100]
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Pool Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Workers:** {{.Workers}}
- **Prefabs:** {{.Prefabs}}

## Performance Results
- **Total Test Time:** {{.TotalTime}}
- **Operations:** {{.Ops.Total}} ({{rate .Ops.Total .TotalTime}}/s)
  - creates {{.Ops.Creates}}, lookups {{.Ops.Lookups}}, moves {{.Ops.Moves}}, iterations {{.Ops.Iterations}}, destroys {{.Ops.Destroys}}
- **Signals Delivered:** {{.Signals}}
- **GetEntity:** avg {{.Lookup.Avg}}, min {{.Lookup.Min}}, max {{.Lookup.Max}}, p99 {{.Lookup.P99}}
- **Create:** avg {{.Create.Avg}}, min {{.Create.Min}}, max {{.Create.Max}}, p99 {{.Create.P99}}

## Systems
- **Frames:** {{.Frames}} ({{.Drifted}} entity moves)
{{range .Systems}}  - {{.Name}}: {{.ExecutionCount}} runs, avg {{.AvgDuration}}, max {{.MaxDuration}}
{{end}}
## Pools
{{range .Pools}}
### {{.PoolId}}
- Entities: {{.EntityCount}} ({{.MemberCount}} members, {{.PinnedHandles}} pinned handles)
- Components: {{.ComponentCount}} across {{.KindCount}} kinds
{{range .KindBreakdown}}  - {{.Name}}: {{.Count}}
{{end}}{{end}}
## Memory Usage
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} MB (start) -> {{mb .MemStatsEnd.HeapAlloc}} MB (end)
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} MB (start) -> {{mb .MemStatsEnd.TotalAlloc}} MB (end)
- Sys Memory:     {{mb .MemStatsStart.Sys}} MB (start) -> {{mb .MemStatsEnd.Sys}} MB (end)
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
- Total GC Pause: {{.MemStatsEnd.PauseTotalNs | ns}}
`

	fm := template.FuncMap{
		"mb": func(v uint64) string {
			return fmt.Sprintf("%.2f", float64(v)/1024/1024)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
		"rate": func(n int64, d time.Duration) string {
			if d <= 0 {
				return "0"
			}
			return fmt.Sprintf("%.0f", float64(n)/d.Seconds())
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
