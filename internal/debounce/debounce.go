// Package debounce decides how long to wait after a keystroke before
// submitting a render. The delay adapts to document size, system load,
// typing cadence, and how expensive recent renders turned out to be.
package debounce

import (
	"sync"
	"time"

	"github.com/billie-coop/presage/internal/sysmon"
)

const (
	keystrokeHistorySize  = 10
	renderHistorySize     = 5
	rapidTypingGap        = 200 * time.Millisecond
	rapidTypingMultiplier = 1.5
)

// Config holds the debounce tunables. Set once at construction and
// treated as immutable afterwards.
type Config struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	DefaultDelay time.Duration

	SmallDocThreshold  int // bytes
	MediumDocThreshold int // bytes

	RenderTimeMultiplier float64
	RenderTimeThreshold  time.Duration
}

// DefaultConfig returns the standard tunables
func DefaultConfig() Config {
	return Config{
		MinDelay:             50 * time.Millisecond,
		MaxDelay:             1000 * time.Millisecond,
		DefaultDelay:         200 * time.Millisecond,
		SmallDocThreshold:    10_000,
		MediumDocThreshold:   100_000,
		RenderTimeMultiplier: 2.0,
		RenderTimeThreshold:  500 * time.Millisecond,
	}
}

// sanitize clamps nonsense values back to defaults
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.MinDelay <= 0 {
		c.MinDelay = def.MinDelay
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = def.MaxDelay
	}
	if c.DefaultDelay < c.MinDelay {
		c.DefaultDelay = c.MinDelay
	}
	if c.DefaultDelay > c.MaxDelay {
		c.DefaultDelay = c.MaxDelay
	}
	if c.SmallDocThreshold <= 0 {
		c.SmallDocThreshold = def.SmallDocThreshold
	}
	if c.MediumDocThreshold <= c.SmallDocThreshold {
		c.MediumDocThreshold = def.MediumDocThreshold
	}
	if c.RenderTimeMultiplier < 1 {
		c.RenderTimeMultiplier = def.RenderTimeMultiplier
	}
	if c.RenderTimeThreshold <= 0 {
		c.RenderTimeThreshold = def.RenderTimeThreshold
	}
	return c
}

// Statistics reports what the controller has been computing
type Statistics struct {
	Calculations     int
	AverageDelay     time.Duration
	MinDelay         time.Duration
	MaxDelay         time.Duration
	TotalAdjustments int
}

// Controller computes adaptive render delays.
//
// Keystroke and render history arrive from the UI thread; delay
// calculation also happens there. The mutex exists because Reset and
// Statistics may be called from elsewhere (status bar refresh).
type Controller struct {
	cfg     Config
	monitor *sysmon.Monitor
	clock   func() time.Time

	mu          sync.Mutex
	keystrokes  []time.Time     // ring, newest last, cap 10
	renderTimes []time.Duration // ring, newest last, cap 5

	calculations int
	delaySum     time.Duration
	delayMin     time.Duration
	delayMax     time.Duration
	adjustments  int
}

// NewController creates a controller backed by the given system monitor
func NewController(cfg Config, monitor *sysmon.Monitor) *Controller {
	return &Controller{
		cfg:     cfg.sanitize(),
		monitor: monitor,
		clock:   time.Now,
	}
}

// SetClock substitutes the time source (tests use this)
func (c *Controller) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Config returns the active (sanitized) tunables
func (c *Controller) Config() Config {
	return c.cfg
}

// OnTextChanged records a keystroke timestamp
func (c *Controller) OnTextChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.keystrokes = append(c.keystrokes, c.clock())
	if len(c.keystrokes) > keystrokeHistorySize {
		c.keystrokes = c.keystrokes[len(c.keystrokes)-keystrokeHistorySize:]
	}
}

// OnRenderComplete records how long the last render took
func (c *Controller) OnRenderComplete(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.renderTimes = append(c.renderTimes, duration)
	if len(c.renderTimes) > renderHistorySize {
		c.renderTimes = c.renderTimes[len(c.renderTimes)-renderHistorySize:]
	}
}

// CalculateDelay computes the debounce delay for a document of the
// given byte size. lastRender, when nonzero, is treated as an extra
// most-recent render duration sample. The result is always within
// [MinDelay, MaxDelay].
func (c *Controller) CalculateDelay(docSize int, lastRender time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	delay := c.baseDelay(docSize)
	adjusted := false

	if mult := loadMultiplier(c.monitor.Load()); mult != 1 {
		delay = time.Duration(float64(delay) * mult)
		adjusted = true
	}

	if c.typingRapidly() {
		delay = time.Duration(float64(delay) * rapidTypingMultiplier)
		adjusted = true
	}

	if mult := c.renderTimeMultiplier(lastRender); mult != 1 {
		delay = time.Duration(float64(delay) * mult)
		adjusted = true
	}

	delay = min(max(delay, c.cfg.MinDelay), c.cfg.MaxDelay)

	c.calculations++
	c.delaySum += delay
	if c.delayMin == 0 || delay < c.delayMin {
		c.delayMin = delay
	}
	if delay > c.delayMax {
		c.delayMax = delay
	}
	if adjusted {
		c.adjustments++
	}
	return delay
}

// baseDelay scales with document size across three bands:
// small documents start near MinDelay and reach DefaultDelay at the
// small threshold; medium documents climb towards the midpoint of
// DefaultDelay and MaxDelay; large documents approach MaxDelay.
func (c *Controller) baseDelay(docSize int) time.Duration {
	if docSize < 0 {
		docSize = 0
	}

	cfg := c.cfg
	largeCeiling := cfg.MediumDocThreshold * 10
	midDelay := (cfg.DefaultDelay + cfg.MaxDelay) / 2

	switch {
	case docSize < cfg.SmallDocThreshold:
		return interpolate(docSize, 0, cfg.SmallDocThreshold, cfg.MinDelay, cfg.DefaultDelay)
	case docSize < cfg.MediumDocThreshold:
		return interpolate(docSize, cfg.SmallDocThreshold, cfg.MediumDocThreshold, cfg.DefaultDelay, midDelay)
	case docSize < largeCeiling:
		return interpolate(docSize, cfg.MediumDocThreshold, largeCeiling, midDelay, cfg.MaxDelay)
	default:
		return cfg.MaxDelay
	}
}

func interpolate(v, lo, hi int, from, to time.Duration) time.Duration {
	frac := float64(v-lo) / float64(hi-lo)
	return from + time.Duration(frac*float64(to-from))
}

func loadMultiplier(level sysmon.LoadLevel) float64 {
	switch level {
	case sysmon.LoadMedium:
		return 1.2
	case sysmon.LoadHigh:
		return 1.5
	case sysmon.LoadVeryHigh:
		return 2.0
	default:
		return 1.0
	}
}

// typingRapidly reports whether recent keystroke gaps indicate the
// user is actively composing. Needs at least 3 samples to decide.
func (c *Controller) typingRapidly() bool {
	if len(c.keystrokes) < 3 {
		return false
	}
	var total time.Duration
	for i := 1; i < len(c.keystrokes); i++ {
		total += c.keystrokes[i].Sub(c.keystrokes[i-1])
	}
	avg := total / time.Duration(len(c.keystrokes)-1)
	return avg < rapidTypingGap
}

// renderTimeMultiplier backs off when recent renders were expensive.
// Neutral (1.0) with no history.
func (c *Controller) renderTimeMultiplier(lastRender time.Duration) float64 {
	samples := c.renderTimes
	if lastRender > 0 {
		samples = append(append([]time.Duration{}, samples...), lastRender)
	}
	if len(samples) == 0 {
		return 1.0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	mean := total / time.Duration(len(samples))
	if mean > c.cfg.RenderTimeThreshold {
		return c.cfg.RenderTimeMultiplier
	}
	return 1.0
}

// Reset clears keystroke and render history atomically.
// Called when the editor switches documents.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keystrokes = nil
	c.renderTimes = nil
}

// Statistics reports aggregate delay calculations
func (c *Controller) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		Calculations:     c.calculations,
		MinDelay:         c.delayMin,
		MaxDelay:         c.delayMax,
		TotalAdjustments: c.adjustments,
	}
	if c.calculations > 0 {
		stats.AverageDelay = c.delaySum / time.Duration(c.calculations)
	}
	return stats
}
