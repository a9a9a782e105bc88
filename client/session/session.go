// Package session keeps the client side state of one conversation: the ids
// of rendered items and the detail panel.
package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
)

// RenderedSection is a resolved section with the correlation entries minted
// for its items, in item order.
type RenderedSection struct {
	resolver.Section
	Entries []Entry
}

type Session struct {
	mu    sync.Mutex
	store *CorrelationStore
	panel Panel
}

func New(capacity int) (*Session, error) {
	store, err := NewCorrelationStore(capacity)
	if err != nil {
		return nil, err
	}
	return &Session{store: store}, nil
}

// Render records every item of the batch. Rendering the same batch twice
// yields distinct ids with identical payloads.
func (s *Session) Render(b resolver.Batch) ([]RenderedSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RenderedSection, 0, len(b.Sections))
	for _, sec := range b.Sections {
		entries, err := s.store.Record(sec.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, RenderedSection{Section: sec, Entries: entries})
	}
	if b.Dropped > 0 {
		log.Debug().Int("dropped", b.Dropped).Msg("rendered batch without ambiguous items")
	}
	return out, nil
}

// OpenByID opens the panel for a recorded item.
func (s *Session) OpenByID(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.store.Lookup(id)
	if err != nil {
		return Entry{}, err
	}
	s.panel.Open(e.Kind, e.Payload)
	return e, nil
}

func (s *Session) Close(trigger CloseTrigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel.Close(trigger)
}

func (s *Session) Panel() Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel
}

// Reset clears recorded ids and closes the panel.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Reset()
	s.panel.Close(CloseExplicit)
}
