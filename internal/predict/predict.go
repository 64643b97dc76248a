// Package predict proposes which document blocks the user is likely
// to edit next, so idle debounce time can be spent warming the render
// cache for them. Predictions are cheap and wrong predictions cost
// nothing but a wasted background render.
package predict

import (
	"sync"

	"github.com/billie-coop/presage/internal/csync"
)

// Statistics reports prediction volume and accuracy
type Statistics struct {
	Predictions int
	Hits        int
}

// Accuracy is the fraction of predicted blocks later consumed by a
// real render, 0 with no history
func (s Statistics) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Predictions)
}

// Predictor tracks the cursor and queues neighboring blocks for
// pre-rendering. The editing pattern it bets on is locality: most
// edits land in the block under the cursor or the ones beside it.
type Predictor struct {
	queue *csync.Slice[int]

	mu          sync.Mutex
	enabled     bool
	cursorLine  int
	predicted   map[int]bool // block index -> proposed and not yet consumed
	predictions int
	hits        int
}

// New creates an enabled predictor
func New() *Predictor {
	return &Predictor{
		queue:     csync.NewSlice[int](),
		enabled:   true,
		predicted: make(map[int]bool),
	}
}

// Enable toggles prediction without discarding learned statistics
func (p *Predictor) Enable(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = on
	if !on {
		p.queue.Clear()
	}
}

// Enabled reports whether prediction is active
func (p *Predictor) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// UpdateCursorPosition records the latest cursor line
func (p *Predictor) UpdateCursorPosition(line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursorLine = line
}

// CursorLine returns the last recorded cursor line
func (p *Predictor) CursorLine() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursorLine
}

// RequestPrediction rebuilds the pre-render queue around the current
// block: the block itself first, then neighbors rippling outward.
func (p *Predictor) RequestPrediction(totalBlocks, currentBlock int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || totalBlocks <= 0 || currentBlock < 0 || currentBlock >= totalBlocks {
		return
	}

	p.queue.Clear()
	candidates := []int{
		currentBlock,
		currentBlock + 1,
		currentBlock - 1,
		currentBlock + 2,
		currentBlock - 2,
	}
	for _, idx := range candidates {
		if idx < 0 || idx >= totalBlocks {
			continue
		}
		p.queue.Append(idx)
		if !p.predicted[idx] {
			p.predicted[idx] = true
			p.predictions++
		}
	}
}

// NextPrerenderBlock pops the next candidate block index
func (p *Predictor) NextPrerenderBlock() (int, bool) {
	return p.queue.Shift()
}

// RecordPredictionUsed credits a prediction whose warmed block was
// consumed by a real render
func (p *Predictor) RecordPredictionUsed(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.predicted[index] {
		delete(p.predicted, index)
		p.hits++
	}
}

// Statistics returns prediction counters
func (p *Predictor) Statistics() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Statistics{
		Predictions: p.predictions,
		Hits:        p.hits,
	}
}
