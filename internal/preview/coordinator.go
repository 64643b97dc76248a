// Package preview coordinates the background render pipeline: every
// text change computes an adaptive debounce delay, arms a one-shot
// timer, and on expiry submits a high-priority render task. While the
// timer is pending, idle time goes to speculatively pre-rendering the
// blocks the user is likely to touch next.
package preview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/billie-coop/presage/internal/blockcache"
	"github.com/billie-coop/presage/internal/debounce"
	"github.com/billie-coop/presage/internal/events"
	"github.com/billie-coop/presage/internal/pool"
	"github.com/billie-coop/presage/internal/predict"
)

const (
	renderCoalesceKey      = "render:document"
	defaultPrerenderBudget = 3
)

// Options wires the coordinator's collaborators
type Options struct {
	Pool      *pool.Pool
	Debouncer *debounce.Controller
	Renderer  *blockcache.Renderer
	Predictor *predict.Predictor
	Broker    *events.Broker
	Logger    *slog.Logger

	// PrerenderBudget caps speculative renders per idle window
	PrerenderBudget int
}

// Snapshot aggregates statistics across the pipeline for status
// displays
type Snapshot struct {
	Pool      pool.Statistics
	Debounce  debounce.Statistics
	Cache     blockcache.Stats
	Predictor predict.Statistics
}

// Coordinator owns the debounce timer and drives render submission.
// Keystroke and cursor events arrive on the UI thread; render work
// happens on pool workers and reports back through the event broker.
type Coordinator struct {
	pool      *pool.Pool
	debouncer *debounce.Controller
	renderer  *blockcache.Renderer
	predictor *predict.Predictor
	broker    *events.Broker
	logger    *slog.Logger
	budget    int

	mu     sync.Mutex
	timer  *time.Timer
	doc    string
	armed  bool
	closed bool
}

// New creates a coordinator. Pool, Debouncer, Renderer, Predictor and
// Broker are required.
func New(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	budget := opts.PrerenderBudget
	if budget <= 0 {
		budget = defaultPrerenderBudget
	}
	return &Coordinator{
		pool:      opts.Pool,
		debouncer: opts.Debouncer,
		renderer:  opts.Renderer,
		predictor: opts.Predictor,
		broker:    opts.Broker,
		logger:    logger,
		budget:    budget,
	}
}

// OnTextChanged records the keystroke, computes the adaptive delay,
// and (re)arms the render timer. The current document text replaces
// any previous pending snapshot, so whenever the timer fires it
// renders the latest content.
func (c *Coordinator) OnTextChanged(doc string) {
	c.debouncer.OnTextChanged()
	delay := c.debouncer.CalculateDelay(len(doc), 0)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.doc = doc
	c.armed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, c.timerFired)
	c.mu.Unlock()

	c.speculate()
}

// OnCursorMoved records the cursor line and, while a render is still
// pending, refreshes the speculative queue around it
func (c *Coordinator) OnCursorMoved(line int) {
	c.predictor.UpdateCursorPosition(line)

	c.mu.Lock()
	pending := c.armed && !c.closed
	c.mu.Unlock()
	if pending {
		c.speculate()
	}
}

// SetDocument switches to a new document: pending work is canceled,
// debounce history is cleared, and the cache keeps whatever still
// matches by content.
func (c *Coordinator) SetDocument(doc string) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed = false
	c.doc = doc
	c.mu.Unlock()

	if canceled := c.pool.CancelAll(); canceled > 0 {
		c.broker.Publish(events.Event{
			Type:    events.TaskCanceledEvent,
			Payload: events.TaskCancellation{Reason: "document switch"},
		})
	}
	c.debouncer.Reset()
}

// RenderNow skips the debounce window and submits the render
// immediately
func (c *Coordinator) RenderNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed = true
	c.mu.Unlock()
	c.submitRender()
}

// EnablePrediction toggles speculative pre-rendering. Accumulated
// accuracy statistics survive the toggle.
func (c *Coordinator) EnablePrediction(on bool) {
	c.predictor.Enable(on)
}

// PredictionEnabled reports whether speculative pre-rendering is on
func (c *Coordinator) PredictionEnabled() bool {
	return c.predictor.Enabled()
}

// ClearCache invalidates all cached block output (theme changes make
// cached output stale even though content didn't change)
func (c *Coordinator) ClearCache() {
	c.renderer.Cache().Clear()
}

// Statistics aggregates counters from every pipeline stage
func (c *Coordinator) Statistics() Snapshot {
	return Snapshot{
		Pool:      c.pool.Statistics(),
		Debounce:  c.debouncer.Statistics(),
		Cache:     c.renderer.Cache().Stats(),
		Predictor: c.predictor.Statistics(),
	}
}

// Close stops the timer and shuts the pool down, waiting up to
// timeout for running tasks
func (c *Coordinator) Close(timeout time.Duration) bool {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return c.pool.Shutdown(timeout)
}

func (c *Coordinator) timerFired() {
	c.mu.Lock()
	c.timer = nil
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.submitRender()
}

// submitRender queues the document render at high priority. The task
// reads the document at execution time, so coalesced submissions
// always render the latest text.
func (c *Coordinator) submitRender() {
	_, err := c.pool.Submit(c.renderTask,
		pool.WithPriority(pool.High),
		pool.WithCoalesceKey(renderCoalesceKey),
	)
	if err != nil {
		c.logger.Error("render submission failed", "error", err)
	}
}

func (c *Coordinator) renderTask() {
	c.mu.Lock()
	doc := c.doc
	c.armed = false
	c.mu.Unlock()

	c.broker.Publish(events.Event{Type: events.RenderStartedEvent})

	start := time.Now()
	out, report, err := c.renderer.Render(doc)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Error("render failed", "error", err)
		c.broker.Publish(events.Event{
			Type:    events.RenderErrorEvent,
			Payload: events.RenderFailure{Message: err.Error()},
		})
		return
	}

	c.debouncer.OnRenderComplete(elapsed)

	for _, block := range report.Blocks {
		if block.CacheHit {
			c.predictor.RecordPredictionUsed(block.Index)
		}
	}

	c.broker.Publish(events.Event{
		Type: events.RenderCompleteEvent,
		Payload: events.RenderResult{
			HTML:     out,
			Duration: elapsed.Seconds(),
			Blocks:   len(report.Blocks),
			CacheHit: report.CacheHits,
		},
	})
}

// speculate spends the idle debounce window warming the cache for
// blocks near the cursor. Everything here is best-effort: failures
// are silent and only leave a cache slot cold.
func (c *Coordinator) speculate() {
	if !c.predictor.Enabled() {
		return
	}

	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == "" {
		return
	}

	blocks := blockcache.Split(doc)
	current := blockcache.BlockAt(blocks, c.predictor.CursorLine())
	if current < 0 {
		return
	}
	c.predictor.RequestPrediction(len(blocks), current)

	for i := 0; i < c.budget; i++ {
		idx, ok := c.predictor.NextPrerenderBlock()
		if !ok {
			break
		}
		block := blocks[idx]
		if c.renderer.Cache().Has(block.ID) {
			continue
		}
		c.submitPrerender(idx, block)
	}
}

func (c *Coordinator) submitPrerender(index int, block blockcache.Block) {
	_, err := c.pool.Submit(func() {
		warmed, err := c.renderer.RenderBlock(block)
		if err != nil {
			c.logger.Debug("speculative render failed", "block", index, "error", err)
			return
		}
		if warmed {
			c.broker.Publish(events.Event{
				Type:    events.PrerenderCompleteEvent,
				Payload: events.PrerenderResult{BlockIndex: index, BlockID: block.ID},
			})
		}
	},
		pool.WithPriority(pool.Low),
		pool.WithCoalesceKey("prerender:"+block.ID),
	)
	if err != nil {
		c.logger.Debug("speculative submission failed", "block", index, "error", err)
	}
}
