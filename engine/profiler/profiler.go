package profiler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stage names one timed step of the import pipeline.
type Stage string

const (
	StageRead       Stage = "read"
	StageScene      Stage = "scene"
	StageSkins      Stage = "skins"
	StageAnimations Stage = "animations"
	StageMaterials  Stage = "materials"
	StageVertices   Stage = "vertices"
	StageRealize    Stage = "realize"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageRead, StageScene, StageSkins, StageAnimations, StageMaterials, StageVertices, StageRealize}

// StageStats aggregates the timings of one stage.
type StageStats struct {
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average duration of the stage, or 0 when it never ran.
func (s StageStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// ImportStats is a point-in-time copy of the profiler counters.
type ImportStats struct {
	Parses    uint64
	Hits      uint64
	Misses    uint64
	Failures  uint64
	Evictions uint64
	Stages    map[Stage]StageStats
}

// ImportProfiler tracks per-stage import timings and cache counters.
// It is safe for concurrent use; the zero value is not, use NewImportProfiler.
type ImportProfiler struct {
	parses    atomic.Uint64
	hits      atomic.Uint64
	misses    atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64

	mu     sync.Mutex
	stages map[Stage]StageStats
	log    *zap.Logger
}

// NewImportProfiler creates a new ImportProfiler that logs through the given logger.
//
// Parameters:
//   - log: destination for Log; nil discards output
//
// Returns:
//   - *ImportProfiler: the newly created profiler instance
func NewImportProfiler(log *zap.Logger) *ImportProfiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportProfiler{
		stages: make(map[Stage]StageStats, len(Stages)),
		log:    log,
	}
}

// Track starts timing a stage. Call the returned function when the stage ends.
//
// Parameters:
//   - stage: the stage being timed
//
// Returns:
//   - func(): stops the timer and records the duration
func (p *ImportProfiler) Track(stage Stage) func() {
	start := time.Now()
	return func() {
		p.Record(stage, time.Since(start))
	}
}

// Record adds one observation of a stage duration.
func (p *ImportProfiler) Record(stage Stage, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stages[stage]
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
	p.stages[stage] = s
}

func (p *ImportProfiler) AddParse()    { p.parses.Add(1) }
func (p *ImportProfiler) AddHit()      { p.hits.Add(1) }
func (p *ImportProfiler) AddMiss()     { p.misses.Add(1) }
func (p *ImportProfiler) AddFailure()  { p.failures.Add(1) }
func (p *ImportProfiler) AddEviction() { p.evictions.Add(1) }

// Snapshot returns a copy of the current counters and stage timings.
func (p *ImportProfiler) Snapshot() ImportStats {
	p.mu.Lock()
	stages := make(map[Stage]StageStats, len(p.stages))
	for k, v := range p.stages {
		stages[k] = v
	}
	p.mu.Unlock()

	return ImportStats{
		Parses:    p.parses.Load(),
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Failures:  p.failures.Load(),
		Evictions: p.evictions.Load(),
		Stages:    stages,
	}
}

// Log writes the current statistics as a single info line, together with the heap footprint.
func (p *ImportProfiler) Log() {
	s := p.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fields := []zap.Field{
		zap.Uint64("parses", s.Parses),
		zap.Uint64("hits", s.Hits),
		zap.Uint64("misses", s.Misses),
		zap.Uint64("failures", s.Failures),
		zap.Uint64("evictions", s.Evictions),
		zap.Float64("heap_mb", float64(mem.Alloc)/1024/1024),
	}
	for _, stage := range Stages {
		if st, ok := s.Stages[stage]; ok {
			fields = append(fields, zap.Duration(string(stage)+"_mean", st.Mean()))
		}
	}
	p.log.Info("import stats", fields...)
}
