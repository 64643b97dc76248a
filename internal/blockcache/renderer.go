package blockcache

import (
	"fmt"
	"strings"
)

// RenderFunc is the opaque markup-to-output function supplied by the
// host. The cache layer never interprets the text itself.
type RenderFunc func(text string) (string, error)

// DefaultIncrementalThreshold is the document size, in bytes, below
// which block analysis costs more than it saves.
const DefaultIncrementalThreshold = 10_000

// BlockResult describes one block's fate during an incremental render
type BlockResult struct {
	Index    int
	ID       string
	CacheHit bool
}

// Report summarizes a render pass
type Report struct {
	FullRender bool // small document, cache bypassed
	Blocks     []BlockResult
	CacheHits  int
	Rendered   int // blocks that went through the render function
}

// Renderer renders documents incrementally through the block cache.
// Small documents are rendered whole; larger ones are split and only
// blocks with unseen IDs hit the render function.
type Renderer struct {
	renderFn  RenderFunc
	cache     *Cache
	threshold int
}

// NewRenderer wires a render function to a cache. threshold <= 0
// selects DefaultIncrementalThreshold.
func NewRenderer(renderFn RenderFunc, cache *Cache, threshold int) *Renderer {
	if threshold <= 0 {
		threshold = DefaultIncrementalThreshold
	}
	return &Renderer{
		renderFn:  renderFn,
		cache:     cache,
		threshold: threshold,
	}
}

// Cache exposes the underlying block cache
func (r *Renderer) Cache() *Cache { return r.cache }

// Render produces output for the whole document. A failed block
// render aborts the pass; the error carries the block's line range so
// it can be shown in place of the preview.
func (r *Renderer) Render(doc string) (string, *Report, error) {
	if len(doc) < r.threshold {
		out, err := r.renderFn(doc)
		if err != nil {
			return "", nil, fmt.Errorf("render failed: %w", err)
		}
		return out, &Report{FullRender: true}, nil
	}

	blocks := Split(doc)
	report := &Report{Blocks: make([]BlockResult, 0, len(blocks))}
	rendered := make([]string, len(blocks))

	for i, block := range blocks {
		if out, ok := r.cache.Get(block.ID); ok {
			rendered[i] = out
			report.Blocks = append(report.Blocks, BlockResult{Index: i, ID: block.ID, CacheHit: true})
			report.CacheHits++
			continue
		}
		out, err := r.renderFn(block.Text)
		if err != nil {
			return "", nil, fmt.Errorf("render failed at lines %d-%d: %w", block.StartLine+1, block.EndLine+1, err)
		}
		r.cache.Put(block.ID, out)
		rendered[i] = out
		report.Blocks = append(report.Blocks, BlockResult{Index: i, ID: block.ID})
		report.Rendered++
	}

	return strings.Join(rendered, "\n"), report, nil
}

// RenderBlock renders a single block into the cache if it isn't
// already there. Used by the speculative pre-render path; failures
// are returned but carry no user impact, the slot just stays cold.
func (r *Renderer) RenderBlock(block Block) (bool, error) {
	if r.cache.Has(block.ID) {
		return false, nil
	}
	out, err := r.renderFn(block.Text)
	if err != nil {
		return false, err
	}
	r.cache.Put(block.ID, out)
	return true, nil
}

