// Package renderer adapts glamour to the opaque render function the
// background pipeline expects. The pipeline never interprets markdown
// itself; this is the only place that does.
package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour/v2"
)

// Markdown renders markdown to styled terminal output. Safe for
// concurrent use; glamour renderers are not, so calls serialize on a
// mutex. Theme changes rebuild the underlying renderer.
type Markdown struct {
	mu    sync.Mutex
	tr    *glamour.TermRenderer
	style string
	wrap  int
}

// NewMarkdown creates a renderer with the given glamour style and
// word-wrap width
func NewMarkdown(style string, wrap int) (*Markdown, error) {
	tr, err := newTermRenderer(style, wrap)
	if err != nil {
		return nil, err
	}
	return &Markdown{tr: tr, style: style, wrap: wrap}, nil
}

func newTermRenderer(style string, wrap int) (*glamour.TermRenderer, error) {
	if wrap <= 0 {
		wrap = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(wrap),
		glamour.WithPreservedNewLines(),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return tr, nil
}

// Render converts markdown text to styled output. This is the
// RenderFunc handed to the block cache layer.
func (m *Markdown) Render(text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out, err := m.tr.Render(text)
	if err != nil {
		return "", err
	}
	// Trim the extra trailing newlines glamour adds
	return strings.TrimRight(out, "\n"), nil
}

// SetTheme switches the glamour style. Callers must clear the block
// cache afterwards since cached output embeds the old theme.
func (m *Markdown) SetTheme(style string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr, err := newTermRenderer(style, m.wrap)
	if err != nil {
		return err
	}
	m.tr = tr
	m.style = style
	return nil
}

// SetWrap changes the word-wrap width (on terminal resize)
func (m *Markdown) SetWrap(wrap int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wrap == m.wrap {
		return nil
	}
	tr, err := newTermRenderer(m.style, wrap)
	if err != nil {
		return err
	}
	m.tr = tr
	m.wrap = wrap
	return nil
}

// Theme returns the active glamour style name
func (m *Markdown) Theme() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.style
}
