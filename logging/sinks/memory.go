package sinks

import (
	"context"
	"sync"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

// MemorySink keeps every event in memory. It doubles as a logging.Publisher
// so engine tests can observe window, restore and history events without a
// router in between.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	s.events = append(s.events, detach(event))
	s.mu.Unlock()
	return nil
}

// Publish records event as published, with no severity floor or static fields.
func (s *MemorySink) Publish(_ context.Context, event logging.Event) {
	_ = s.Write(event)
}

// Events returns a copy of everything recorded so far, oldest first.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logging.Event(nil), s.events...)
}

// OfType returns the recorded events of one type, oldest first.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []logging.Event
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

// detach copies the slices and maps a caller might keep mutating.
func detach(event logging.Event) logging.Event {
	out := event
	if len(event.Targets) > 0 {
		out.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		out.Extra = make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
