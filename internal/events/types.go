package events

// EventType identifies the type of event
type EventType string

const (
	// Render lifecycle events
	RenderStartedEvent  EventType = "render.started"
	RenderCompleteEvent EventType = "render.complete"
	RenderErrorEvent    EventType = "render.error"

	// Speculative pre-render events
	PrerenderCompleteEvent EventType = "prerender.complete"

	// Task events
	TaskCanceledEvent EventType = "task.canceled"

	// Configuration events
	ConfigUpdatedEvent EventType = "config.updated"
	ThemeChangedEvent  EventType = "theme.changed"

	// Statistics refresh (periodic, for status displays)
	StatsUpdatedEvent EventType = "stats.updated"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload any
}

// RenderResult is the payload of RenderCompleteEvent.
type RenderResult struct {
	HTML     string
	Duration float64 // seconds
	Blocks   int
	CacheHit int
}

// RenderFailure is the payload of RenderErrorEvent.
type RenderFailure struct {
	Message string
}

// PrerenderResult is the payload of PrerenderCompleteEvent.
type PrerenderResult struct {
	BlockIndex int
	BlockID    string
}

// TaskCancellation is the payload of TaskCanceledEvent.
type TaskCancellation struct {
	TaskID string
	Reason string
}
