package ui

import (
	"sync"
	"time"
)

// speedSampleInterval is the minimum spacing between throughput
// samples. Sampling every update would just measure scheduler noise.
const speedSampleInterval = 500 * time.Millisecond

// etaSmoothingFactor is the weight given to the newest ETA estimate.
const etaSmoothingFactor = 0.3

// SpeedStats contains throughput metrics for display.
type SpeedStats struct {
	Current float64 // Latest sample, documents/sec
	Avg     float64 // Exponentially smoothed average
	Peak    float64 // Maximum observed
}

// speedMeter derives documents/sec from progress counts. It samples
// at most every speedSampleInterval and feeds each sample into the
// sparkline. Not safe for concurrent use; the tracker locks around it.
type speedMeter struct {
	lastCount  int
	lastSample time.Time
	current    float64
	avg        float64
	peak       float64
	samples    int
	sparkline  *Sparkline
}

func newSpeedMeter(now time.Time) *speedMeter {
	return &speedMeter{lastSample: now, sparkline: NewSparkline(60)}
}

// observe folds a new progress count into the meter.
func (sm *speedMeter) observe(count int, now time.Time) {
	elapsed := now.Sub(sm.lastSample)
	if elapsed < speedSampleInterval {
		return
	}

	if delta := count - sm.lastCount; delta > 0 && elapsed > 0 {
		speed := float64(delta) / elapsed.Seconds()
		sm.current = speed

		sm.samples++
		if sm.samples == 1 {
			sm.avg = speed
		} else {
			sm.avg = 0.2*speed + 0.8*sm.avg
		}
		if speed > sm.peak {
			sm.peak = speed
		}

		sm.sparkline.Add(speed)
	}

	sm.lastCount = count
	sm.lastSample = now
}

// reset clears the meter for a new stage.
func (sm *speedMeter) reset(now time.Time) {
	sm.lastCount = 0
	sm.lastSample = now
	sm.current = 0
	sm.avg = 0
	sm.peak = 0
	sm.samples = 0
	sm.sparkline.Clear()
}

func (sm *speedMeter) stats() SpeedStats {
	return SpeedStats{Current: sm.current, Avg: sm.avg, Peak: sm.peak}
}

// ProgressStats is a snapshot of tracker state for rendering.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Speed       SpeedStats
}

// ProgressTracker accumulates per-stage indexing progress. Renderers
// read it through Stats; the loader's progress callbacks write it.
// Safe for concurrent use.
type ProgressTracker struct {
	mu          sync.RWMutex
	stage       Stage
	current     int
	total       int
	currentFile string
	startTime   time.Time
	stageStart  time.Time
	errors      []ErrorEvent
	warnings    []ErrorEvent
	meter       *speedMeter

	// lastETA smooths the estimate so it does not jump around.
	lastETA time.Duration
}

// NewProgressTracker creates a tracker starting at the scanning stage.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageScanning,
		startTime:  now,
		stageStart: now,
		meter:      newSpeedMeter(now),
	}
}

// SetStage transitions to a new stage, resetting counts, the current
// file, and the throughput meter. Speed is per-stage; parse and index
// rates are not comparable.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.stage = stage
	p.total = total
	p.current = 0
	p.currentFile = ""
	p.stageStart = now
	p.lastETA = 0
	p.meter.reset(now)
}

// Update records progress within the current stage. An empty file
// keeps the previous one visible.
func (p *ProgressTracker) Update(current int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if file != "" {
		p.currentFile = file
	}
	p.meter.observe(current, time.Now())
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Progress returns completion of the current stage in [0, 1]. An
// unknown total reads as zero.
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fraction()
}

// ETA estimates the remaining time for the current stage. Takes the
// write lock; smoothing updates lastETA.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.smoothedETA()
}

// Elapsed returns time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.startTime)
}

// Stats returns a snapshot of everything the renderers display.
// Takes the write lock; smoothing updates lastETA.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:       p.stage,
		Current:     p.current,
		Total:       p.total,
		Progress:    p.fraction(),
		ETA:         p.smoothedETA(),
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
		Speed:       p.meter.stats(),
	}
}

// Errors returns a copy of the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ErrorEvent, len(p.errors))
	copy(out, p.errors)
	return out
}

// Warnings returns a copy of the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ErrorEvent, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// RenderSparkline returns the throughput sparkline at the given width.
func (p *ProgressTracker) RenderSparkline(width int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meter.sparkline.Render(width)
}

// SpeedStats returns the current throughput metrics.
func (p *ProgressTracker) SpeedStats() SpeedStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meter.stats()
}

// fraction computes stage completion. Must be called with the lock
// held.
func (p *ProgressTracker) fraction() float64 {
	if p.total <= 0 {
		return 0
	}
	f := float64(p.current) / float64(p.total)
	if f > 1 {
		return 1
	}
	return f
}

// smoothedETA extrapolates the stage's remaining time from elapsed
// time and blends it with the previous estimate. Must be called with
// the write lock held.
func (p *ProgressTracker) smoothedETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}

	progress := float64(p.current) / float64(p.total)
	if progress <= 0 || progress >= 1 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	remaining := time.Duration(float64(elapsed)/progress) - elapsed
	if remaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = remaining
		return remaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(remaining) + (1-etaSmoothingFactor)*float64(p.lastETA),
	)
	p.lastETA = smoothed
	return smoothed
}
