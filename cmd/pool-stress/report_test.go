package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/plus3/entitypool/ecs"
	"github.com/plus3/entitypool/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestStatsFinalize(t *testing.T) {
	s := Stats{Samples: []time.Duration{5, 1, 3}}
	s.Finalize()

	assert.Equal(t, time.Duration(1), s.Min)
	assert.Equal(t, time.Duration(5), s.Max)
	assert.Equal(t, time.Duration(3), s.Avg)
	assert.Equal(t, time.Duration(5), s.P99)

	var empty Stats
	empty.Finalize()
	assert.Zero(t, empty.Max)
}

func TestReportGenerate(t *testing.T) {
	r := &Report{
		Duration:  time.Second,
		Entities:  10,
		Workers:   2,
		TotalTime: time.Second,
		Ops:       OpCounts{Creates: 3, Lookups: 4},
		Frames:    12,
		Systems:   []ecs.SystemStats{{Name: "DriftSystem", ExecutionCount: 12}},
		Pools: []ecs.PoolStats{{
			EntityCount:   2,
			KindBreakdown: []ecs.KindStats{{Name: "Health", Count: 2}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Generate(&buf))

	out := buf.String()
	assert.Contains(t, out, "**Operations:** 7 (7/s)")
	assert.Contains(t, out, "  - Health: 2")
	assert.Contains(t, out, "**Frames:** 12")
	assert.Contains(t, out, "  - DriftSystem: 12 runs")
}

func TestRunShortStress(t *testing.T) {
	cfg := config.Defaults()
	cfg.Stress.Entities = 200
	cfg.Stress.Workers = 2
	cfg.Stress.Duration = 50 * time.Millisecond
	cfg.Stress.Tick = 5 * time.Millisecond

	require.NoError(t, run(cfg, zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))))
}
