// Package tui is the live-preview editor surface: a markdown textarea
// on the left and the rendered preview on the right. All rendering
// decisions live in the preview coordinator; this package only feeds
// it keystrokes and displays whatever comes back on the event broker.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/v2/textarea"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/presage/internal/events"
	"github.com/billie-coop/presage/internal/preview"
	"github.com/billie-coop/presage/internal/renderer"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	statusStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	previewBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238"))
)

// themes cycled with ctrl+t
var themes = []string{"dracula", "dark", "light", "notty"}

type eventsClosedMsg struct{}

// Model is the editor application state
type Model struct {
	input    textarea.Model
	preview  viewport.Model
	coord    *preview.Coordinator
	markdown *renderer.Markdown
	eventCh  <-chan events.Event

	width      int
	height     int
	themeIndex int
	lastLine   int
	lastValue  string
	renderErr  string
	status     string
}

// New creates the editor model. The coordinator and markdown renderer
// are built by the caller so their lifecycle outlives the UI.
func New(coord *preview.Coordinator, markdown *renderer.Markdown, eventCh <-chan events.Event) *Model {
	ta := textarea.New()
	ta.Placeholder = "Start typing markdown..."
	ta.Focus()
	ta.CharLimit = -1
	ta.ShowLineNumbers = true

	vp := viewport.New()

	return &Model{
		input:    ta,
		preview:  vp,
		coord:    coord,
		markdown: markdown,
		eventCh:  eventCh,
		status:   "ready",
	}
}

// Init starts listening for pipeline events
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// waitForEvent turns the broker subscription into bubbletea messages
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.eventCh
		if !ok {
			return eventsClosedMsg{}
		}
		return ev
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var taCmd, vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.coord.Close(2 * time.Second)
			return m, tea.Quit
		case "ctrl+t":
			return m, m.cycleTheme()
		case "ctrl+p":
			m.togglePrediction()
			return m, nil
		case "ctrl+r":
			m.coord.RenderNow()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case events.Event:
		m.handleEvent(msg)
		return m, m.waitForEvent()

	case eventsClosedMsg:
		return m, nil
	}

	m.input, taCmd = m.input.Update(msg)
	m.preview, vpCmd = m.preview.Update(msg)
	m.notifyCoordinator()

	return m, tea.Batch(taCmd, vpCmd)
}

// notifyCoordinator forwards text and cursor changes after the
// textarea has absorbed the message
func (m *Model) notifyCoordinator() {
	if value := m.input.Value(); value != m.lastValue {
		m.lastValue = value
		m.coord.OnTextChanged(value)
	}
	if line := m.input.Line(); line != m.lastLine {
		m.lastLine = line
		m.coord.OnCursorMoved(line)
	}
}

func (m *Model) handleEvent(ev events.Event) {
	switch ev.Type {
	case events.RenderCompleteEvent:
		result, ok := ev.Payload.(events.RenderResult)
		if !ok {
			return
		}
		m.renderErr = ""
		m.preview.SetContent(result.HTML)
		m.status = fmt.Sprintf("rendered %d blocks (%d cached) in %.0fms",
			result.Blocks, result.CacheHit, result.Duration*1000)

	case events.RenderErrorEvent:
		if failure, ok := ev.Payload.(events.RenderFailure); ok {
			m.renderErr = failure.Message
		}

	case events.RenderStartedEvent:
		m.status = "rendering..."

	case events.TaskCanceledEvent:
		if cancellation, ok := ev.Payload.(events.TaskCancellation); ok {
			m.status = "canceled: " + cancellation.Reason
		}
	}
}

func (m *Model) cycleTheme() tea.Cmd {
	m.themeIndex = (m.themeIndex + 1) % len(themes)
	theme := themes[m.themeIndex]
	if err := m.markdown.SetTheme(theme); err != nil {
		m.status = "theme error: " + err.Error()
		return nil
	}
	// Cached output embeds the old theme's styling
	m.coord.ClearCache()
	m.coord.RenderNow()
	m.status = "theme: " + theme
	return nil
}

func (m *Model) togglePrediction() {
	on := !m.coord.PredictionEnabled()
	m.coord.EnablePrediction(on)
	if on {
		m.status = "prediction on"
	} else {
		m.status = "prediction off"
	}
}

func (m *Model) resize() {
	editorWidth := m.width / 2
	previewWidth := m.width - editorWidth - 2
	bodyHeight := m.height - 3
	if bodyHeight < 5 {
		bodyHeight = 5
	}

	m.input.SetWidth(editorWidth)
	m.input.SetHeight(bodyHeight)

	m.preview = viewport.New(
		viewport.WithWidth(previewWidth),
		viewport.WithHeight(bodyHeight),
	)
	m.preview.MouseWheelEnabled = true

	if err := m.markdown.SetWrap(previewWidth - 2); err == nil {
		// Wrap width is baked into cached output
		m.coord.ClearCache()
	}
	if m.lastValue != "" {
		m.coord.RenderNow()
	}
}

// View renders the UI
func (m *Model) View() tea.View {
	if m.width == 0 {
		return tea.NewView("loading...")
	}

	previewContent := m.preview.View()
	if m.renderErr != "" {
		previewContent = errorStyle.Render("render error: " + m.renderErr)
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.input.View(),
		previewBorder.Render(previewContent),
	)

	header := titleStyle.Render("Presage") + "  " + statusStyle.Render(m.statusLine())

	return tea.NewView(header + "\n" + body)
}

// statusLine folds pipeline statistics into one line
func (m *Model) statusLine() string {
	stats := m.coord.Statistics()
	return fmt.Sprintf("%s • pool %d/%d • cache %.0f%% hit • predict %.0f%% • %s",
		m.status,
		stats.Pool.ActiveThreads, stats.Pool.MaxThreads,
		stats.Cache.HitRate()*100,
		stats.Predictor.Accuracy()*100,
		statusStyle.Render(fmt.Sprintf("delay avg %dms", stats.Debounce.AverageDelay.Milliseconds())),
	)
}
