package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

// DefaultCapacity bounds the correlation store of one session.
const DefaultCapacity = 512

var ErrUnknownCorrelation = errors.New("unknown correlation id")

type Entry struct {
	ID      string
	Kind    envelopex.Kind
	Payload json.RawMessage
}

// CorrelationStore maps client minted ids to full item payloads. Oldest
// entries are evicted once capacity is reached.
type CorrelationStore struct {
	cache *lru.Cache[string, Entry]
}

func NewCorrelationStore(capacity int) (*CorrelationStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create correlation cache: %w", err)
	}
	return &CorrelationStore{cache: cache}, nil
}

// Record stores one entry per item under a fresh id. Each payload is
// marshalled once so every later lookup returns the same bytes.
func (s *CorrelationStore) Record(items []envelopex.RichItem) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("marshal %s item: %w", it.Kind, err)
		}
		entries = append(entries, Entry{ID: uuid.NewString(), Kind: it.Kind, Payload: payload})
	}
	for _, e := range entries {
		s.cache.Add(e.ID, e)
	}
	return entries, nil
}

func (s *CorrelationStore) Lookup(id string) (Entry, error) {
	e, ok := s.cache.Get(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownCorrelation, id)
	}
	e.Payload = append(json.RawMessage(nil), e.Payload...)
	return e, nil
}

func (s *CorrelationStore) Len() int {
	return s.cache.Len()
}

func (s *CorrelationStore) Reset() {
	s.cache.Purge()
}
