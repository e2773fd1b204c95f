package service

import (
	"context"
	"sync"
)

// Events published by sessions.
const (
	EventPageUpdated        = "page:updated"
	EventPageSaved          = "page:saved"
	EventPageClosed         = "page:closed"
	EventPageExternalChange = "page:external-change"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples sessions from the transports
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to connected clients.
// The websocket hub implements it for the HTTP server; the MCP server uses a
// no-op. Sessions receive this interface instead of a transport, which makes
// them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of one event, in order.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
