package events

import "log/slog"

// Event represents a structured state change emitted by the exchange engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (gateway, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It is
// the default wired into components that expose events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// CollectEmitter gathers emitted events in order, for tests and replay.
type CollectEmitter struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (c *CollectEmitter) Emit(evt Event) {
	if c == nil {
		return
	}
	c.Events = append(c.Events, evt)
}

// LogEmitter writes each event to a structured logger. The daemon wires it in
// when no dedicated event sink is configured.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (l *LogEmitter) Emit(evt Event) {
	logger := slog.Default()
	if l != nil && l.Logger != nil {
		logger = l.Logger
	}
	logger.Info("exchange event", slog.String("type", evt.EventType()), slog.Any("event", evt))
}
