package debounce

import (
	"testing"
	"time"

	"github.com/billie-coop/presage/internal/sysmon"
)

// fixedSampler pins CPU load for deterministic delay math
type fixedSampler struct {
	cpu float64
}

func (s fixedSampler) Sample() (sysmon.Metrics, error) {
	return sysmon.Metrics{CPUPercent: s.cpu, MemoryPercent: 30}, nil
}

func newTestController(cpu float64) *Controller {
	monitor := sysmon.New(sysmon.WithSampler(fixedSampler{cpu: cpu}))
	return NewController(DefaultConfig(), monitor)
}

func TestCalculateDelay_AlwaysClamped(t *testing.T) {
	c := newTestController(10)
	cfg := c.Config()

	sizes := []int{0, 1, 500, 9_999, 10_000, 50_000, 100_000, 500_000, 1_000_000, 10_000_000}
	for _, size := range sizes {
		delay := c.CalculateDelay(size, 0)
		if delay < cfg.MinDelay || delay > cfg.MaxDelay {
			t.Errorf("CalculateDelay(%d) = %v; want within [%v, %v]", size, delay, cfg.MinDelay, cfg.MaxDelay)
		}
	}
}

func TestCalculateDelay_MonotonicInSize(t *testing.T) {
	c := newTestController(10)

	sizes := []int{0, 1_000, 9_999, 10_000, 55_000, 99_999, 100_000, 400_000, 1_000_000}
	prev := time.Duration(-1)
	for _, size := range sizes {
		delay := c.CalculateDelay(size, 0)
		if delay < prev {
			t.Errorf("delay decreased at size %d: %v < %v", size, delay, prev)
		}
		prev = delay
	}
}

func TestCalculateDelay_SmallDocLowLoad(t *testing.T) {
	c := newTestController(10)

	delay := c.CalculateDelay(5_000, 0)
	if delay < 50*time.Millisecond || delay > 400*time.Millisecond {
		t.Errorf("small doc delay = %v; want within small-doc band [50ms, 400ms]", delay)
	}
}

func TestCalculateDelay_HugeDocHitsMax(t *testing.T) {
	c := newTestController(10)

	delay := c.CalculateDelay(1_000_000, 0)
	if delay != c.Config().MaxDelay {
		t.Errorf("1MB doc delay = %v; want clamped to %v", delay, c.Config().MaxDelay)
	}
}

func TestCalculateDelay_RenderTimeFeedback(t *testing.T) {
	const mediumDoc = 50_000

	baseline := newTestController(10).CalculateDelay(mediumDoc, 0)

	c := newTestController(10)
	for i := 0; i < 5; i++ {
		c.OnRenderComplete(800 * time.Millisecond)
	}
	slowed := c.CalculateDelay(mediumDoc, 0)

	if slowed <= baseline {
		t.Errorf("delay after slow renders = %v; want > baseline %v", slowed, baseline)
	}
}

func TestCalculateDelay_LastRenderParameter(t *testing.T) {
	c := newTestController(10)

	without := c.CalculateDelay(50_000, 0)
	with := c.CalculateDelay(50_000, 900*time.Millisecond)

	if with <= without {
		t.Errorf("delay with slow lastRender = %v; want > %v", with, without)
	}
}

func TestCalculateDelay_RapidTypingBacksOff(t *testing.T) {
	now := time.Unix(5000, 0)
	c := newTestController(10)
	c.SetClock(func() time.Time { return now })

	relaxed := c.CalculateDelay(5_000, 0)

	// Five keystrokes 50ms apart: clearly mid-composition
	for i := 0; i < 5; i++ {
		c.OnTextChanged()
		now = now.Add(50 * time.Millisecond)
	}
	busy := c.CalculateDelay(5_000, 0)

	if busy <= relaxed {
		t.Errorf("delay while typing rapidly = %v; want > %v", busy, relaxed)
	}
}

func TestCalculateDelay_LoadScaling(t *testing.T) {
	const doc = 50_000

	low := newTestController(10).CalculateDelay(doc, 0)
	high := newTestController(90).CalculateDelay(doc, 0)

	if high <= low {
		t.Errorf("delay under very_high load = %v; want > low-load delay %v", high, low)
	}
}

func TestReset_ClearsHistory(t *testing.T) {
	now := time.Unix(6000, 0)
	c := newTestController(10)
	c.SetClock(func() time.Time { return now })

	for i := 0; i < 8; i++ {
		c.OnTextChanged()
		now = now.Add(30 * time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		c.OnRenderComplete(900 * time.Millisecond)
	}

	before := c.CalculateDelay(5_000, 0)
	c.Reset()
	after := c.CalculateDelay(5_000, 0)

	if after >= before {
		t.Errorf("delay after Reset = %v; want < pre-reset %v", after, before)
	}

	// A fresh controller must agree with the post-reset value
	fresh := newTestController(10).CalculateDelay(5_000, 0)
	if after != fresh {
		t.Errorf("post-reset delay = %v; fresh controller = %v", after, fresh)
	}
}

func TestStatistics(t *testing.T) {
	c := newTestController(10)

	if stats := c.Statistics(); stats.Calculations != 0 || stats.AverageDelay != 0 {
		t.Errorf("fresh statistics = %+v; want zeros", stats)
	}

	c.CalculateDelay(1_000, 0)
	c.CalculateDelay(500_000, 0)

	stats := c.Statistics()
	if stats.Calculations != 2 {
		t.Errorf("Calculations = %d; want 2", stats.Calculations)
	}
	if stats.MinDelay > stats.MaxDelay {
		t.Errorf("MinDelay %v > MaxDelay %v", stats.MinDelay, stats.MaxDelay)
	}
	if stats.AverageDelay < stats.MinDelay || stats.AverageDelay > stats.MaxDelay {
		t.Errorf("AverageDelay %v outside [%v, %v]", stats.AverageDelay, stats.MinDelay, stats.MaxDelay)
	}
}

func TestConfig_SanitizeClampsNonsense(t *testing.T) {
	cfg := Config{
		MinDelay:     -1,
		MaxDelay:     -1,
		DefaultDelay: -1,
	}.sanitize()

	def := DefaultConfig()
	if cfg.MinDelay != def.MinDelay || cfg.MaxDelay != def.MaxDelay {
		t.Errorf("sanitized delays = %v/%v; want defaults %v/%v", cfg.MinDelay, cfg.MaxDelay, def.MinDelay, def.MaxDelay)
	}
	if cfg.DefaultDelay < cfg.MinDelay || cfg.DefaultDelay > cfg.MaxDelay {
		t.Errorf("sanitized DefaultDelay %v outside [%v, %v]", cfg.DefaultDelay, cfg.MinDelay, cfg.MaxDelay)
	}
}
