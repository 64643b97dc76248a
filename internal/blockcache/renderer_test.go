package blockcache

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

// countingRender wraps a trivial render function and counts calls
func countingRender(calls *atomic.Int32) RenderFunc {
	return func(text string) (string, error) {
		calls.Add(1)
		return "[" + text + "]", nil
	}
}

func bigDoc(sections int) string {
	var sb strings.Builder
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&sb, "# Section %d %s\n", i, strings.Repeat("x", 200))
		fmt.Fprintf(&sb, "%s paragraph %d\n\n", strings.Repeat("body text ", 30), i)
	}
	return sb.String()
}

func TestRender_SmallDocBypassesCache(t *testing.T) {
	var calls atomic.Int32
	r := NewRenderer(countingRender(&calls), NewCache(10), 1000)

	doc := "# Tiny\nhello"
	out, report, err := r.Render(doc)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !report.FullRender {
		t.Error("small document did not take the full-render path")
	}
	if out != "["+doc+"]" {
		t.Errorf("Render output = %q", out)
	}
	if r.Cache().Stats().Entries != 0 {
		t.Error("full render populated the block cache")
	}

	// Rendering again pays full price: no cache involved
	r.Render(doc)
	if calls.Load() != 2 {
		t.Errorf("render function called %d times; want 2", calls.Load())
	}
}

func TestRender_UnchangedDocumentFullyCached(t *testing.T) {
	var calls atomic.Int32
	r := NewRenderer(countingRender(&calls), NewCache(100), 100)

	doc := bigDoc(5)
	if _, report, err := r.Render(doc); err != nil {
		t.Fatal(err)
	} else if report.Rendered == 0 {
		t.Fatal("first render hit nothing but cache")
	}
	firstCalls := calls.Load()

	_, report, err := r.Render(doc)
	if err != nil {
		t.Fatal(err)
	}

	if report.Rendered != 0 {
		t.Errorf("re-render of unchanged document rendered %d blocks; want 0", report.Rendered)
	}
	if report.CacheHits != len(report.Blocks) {
		t.Errorf("cache hits = %d of %d blocks; want all", report.CacheHits, len(report.Blocks))
	}
	if calls.Load() != firstCalls {
		t.Errorf("render function called %d extra times; want 0", calls.Load()-firstCalls)
	}
}

func TestRender_ChangedBlockInvalidatesOnlyItself(t *testing.T) {
	var calls atomic.Int32
	r := NewRenderer(countingRender(&calls), NewCache(100), 100)

	doc := bigDoc(5)
	if _, _, err := r.Render(doc); err != nil {
		t.Fatal(err)
	}

	changed := strings.Replace(doc, "body text", "edited text", 1)
	_, report, err := r.Render(changed)
	if err != nil {
		t.Fatal(err)
	}

	if report.Rendered != 1 {
		t.Errorf("edited one block, %d blocks re-rendered; want 1", report.Rendered)
	}
	if report.CacheHits != len(report.Blocks)-1 {
		t.Errorf("cache hits = %d; want %d", report.CacheHits, len(report.Blocks)-1)
	}
}

func TestRender_OutputStableAcrossCache(t *testing.T) {
	var calls atomic.Int32
	r := NewRenderer(countingRender(&calls), NewCache(100), 100)

	doc := bigDoc(3)
	first, _, err := r.Render(doc)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := r.Render(doc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cached render output differs from fresh render output")
	}
}

func TestRender_ErrorAborts(t *testing.T) {
	boom := errors.New("bad markup")
	r := NewRenderer(func(string) (string, error) { return "", boom }, NewCache(10), 100)

	if _, _, err := r.Render(bigDoc(2)); !errors.Is(err, boom) {
		t.Errorf("Render error = %v; want wrapped %v", err, boom)
	}
}

func TestRenderBlock_WarmsCacheOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewRenderer(countingRender(&calls), NewCache(10), 100)

	block := Split("# Warm\ncontent")[0]

	warmed, err := r.RenderBlock(block)
	if err != nil || !warmed {
		t.Fatalf("RenderBlock = %v, %v; want true, nil", warmed, err)
	}

	warmed, err = r.RenderBlock(block)
	if err != nil || warmed {
		t.Errorf("second RenderBlock = %v, %v; want false (already cached), nil", warmed, err)
	}
	if calls.Load() != 1 {
		t.Errorf("render function called %d times; want 1", calls.Load())
	}
}
