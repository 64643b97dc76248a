// Package sysmon samples system CPU and memory load for the debounce
// controller. Samples are cached briefly so a burst of keystrokes does
// not hammer the OS for metrics.
package sysmon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// LoadLevel is an ordinal classification of CPU load.
type LoadLevel int

const (
	LoadLow      LoadLevel = iota // < 30%
	LoadMedium                    // 30-60%
	LoadHigh                      // 60-80%
	LoadVeryHigh                  // > 80%
)

// String returns a human-readable load level name
func (l LoadLevel) String() string {
	switch l {
	case LoadLow:
		return "low"
	case LoadMedium:
		return "medium"
	case LoadHigh:
		return "high"
	case LoadVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// Metrics is a point-in-time load snapshot
type Metrics struct {
	CPUPercent    float64
	MemoryPercent float64
	Timestamp     time.Time
}

// Sampler reads current system metrics. Implementations may be slow;
// the Monitor caches their results.
type Sampler interface {
	Sample() (Metrics, error)
}

// GopsutilSampler samples via gopsutil. The zero value is usable.
type GopsutilSampler struct{}

// Sample reads instantaneous CPU and memory utilization
func (GopsutilSampler) Sample() (Metrics, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return Metrics{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		CPUPercent:    cpuPct,
		MemoryPercent: vm.UsedPercent,
		Timestamp:     time.Now(),
	}, nil
}

// Monitor caches sampler readings for a short TTL and classifies CPU
// load into LoadLevel bands. Construct one per editor session and
// share it; it is safe for concurrent use.
type Monitor struct {
	sampler Sampler
	clock   func() time.Time
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	cached Metrics
	valid  bool
}

// Option configures a Monitor
type Option func(*Monitor)

// WithSampler substitutes the metrics source (tests use this)
func WithSampler(s Sampler) Option {
	return func(m *Monitor) { m.sampler = s }
}

// WithClock substitutes the time source (tests use this)
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) { m.clock = clock }
}

// WithCacheTTL overrides the default 1s sample cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Monitor) { m.ttl = ttl }
}

// WithLogger sets the logger for sampling failures
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a monitor with a 1-second sample cache
func New(opts ...Option) *Monitor {
	m := &Monitor{
		sampler: GopsutilSampler{},
		clock:   time.Now,
		ttl:     time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Metrics returns the current (possibly cached) system metrics.
// On sampling failure it returns a neutral 50/50 reading so callers
// never have to handle an error on the keystroke path.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if m.valid && now.Sub(m.cached.Timestamp) < m.ttl {
		return m.cached
	}

	sample, err := m.sampler.Sample()
	if err != nil {
		m.logger.Debug("system metrics sampling failed, using neutral reading", "error", err)
		sample = Metrics{CPUPercent: 50, MemoryPercent: 50}
	}
	sample.Timestamp = now
	m.cached = sample
	m.valid = true
	return m.cached
}

// Load classifies the current CPU utilization
func (m *Monitor) Load() LoadLevel {
	return ClassifyLoad(m.Metrics().CPUPercent)
}

// ClassifyLoad maps a CPU percentage onto the ordinal load scale
func ClassifyLoad(cpuPercent float64) LoadLevel {
	switch {
	case cpuPercent < 30:
		return LoadLow
	case cpuPercent < 60:
		return LoadMedium
	case cpuPercent < 80:
		return LoadHigh
	default:
		return LoadVeryHigh
	}
}
