package session

import (
	"bytes"
	"errors"
	"testing"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	"github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
)

func dealerBatch() resolver.Batch {
	return resolver.Resolve(envelopex.New("Here are dealers near you.", []envelopex.RichItem{
		envelopex.NewDealer(envelopex.Dealer{ID: "d1", Name: "Buick of Beverly Hills"}),
		envelopex.NewDealer(envelopex.Dealer{ID: "d2", Name: "Santa Monica Buick"}),
	}))
}

func newTestSession(t *testing.T, capacity int) *Session {
	t.Helper()
	s, err := New(capacity)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestRenderTwiceMintsDistinctIDsSamePayloads(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, 0)
	b := dealerBatch()

	first, err := s.Render(b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := s.Render(b)
	if err != nil {
		t.Fatalf("render again: %v", err)
	}

	seen := map[string]bool{}
	for i, e := range first[0].Entries {
		again := second[0].Entries[i]
		if e.ID == again.ID {
			t.Fatalf("expected fresh id, got %s twice", e.ID)
		}
		if !bytes.Equal(e.Payload, again.Payload) {
			t.Fatalf("payloads differ: %s vs %s", e.Payload, again.Payload)
		}
		seen[e.ID] = true
		seen[again.ID] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct ids, got %d", len(seen))
	}
}

func TestOpenByIDReplacesOpenPanel(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, 0)
	rendered, err := s.Render(dealerBatch())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	entries := rendered[0].Entries

	if _, err := s.OpenByID(entries[0].ID); err != nil {
		t.Fatalf("open first: %v", err)
	}
	if _, err := s.OpenByID(entries[1].ID); err != nil {
		t.Fatalf("open second: %v", err)
	}
	kind, payload, ok := s.Panel().Current()
	if !ok || kind != envelopex.KindDealer {
		t.Fatalf("expected open dealer panel, got %v %s", ok, kind)
	}
	if !bytes.Contains(payload, []byte("Santa Monica Buick")) {
		t.Fatalf("expected second dealer in panel, got %s", payload)
	}
}

func TestCloseTriggers(t *testing.T) {
	t.Parallel()

	for _, trigger := range []CloseTrigger{CloseExplicit, CloseOverlay, CloseImageEditSubmitted} {
		t.Run(string(trigger), func(t *testing.T) {
			t.Parallel()
			var p Panel
			p.Close(trigger)
			if p.IsOpen() {
				t.Fatal("closing a closed panel must leave it closed")
			}
			p.Open(envelopex.KindEditedImage, []byte(`{"image_url":"x"}`))
			p.Close(trigger)
			if p.IsOpen() {
				t.Fatalf("expected closed panel after %s", trigger)
			}
		})
	}
}

func TestResetForgetsIDs(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, 0)
	rendered, err := s.Render(dealerBatch())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	id := rendered[0].Entries[0].ID
	if _, err := s.OpenByID(id); err != nil {
		t.Fatalf("open: %v", err)
	}

	s.Reset()
	if s.Panel().IsOpen() {
		t.Fatal("expected closed panel after reset")
	}
	if _, err := s.OpenByID(id); !errors.Is(err, ErrUnknownCorrelation) {
		t.Fatalf("expected unknown correlation, got %v", err)
	}
}

func TestCorrelationStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	store, err := NewCorrelationStore(2)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	entries, err := store.Record([]envelopex.RichItem{
		envelopex.NewEditedImage(envelopex.EditedImage{ImageURL: "a"}),
		envelopex.NewEditedImage(envelopex.EditedImage{ImageURL: "b"}),
		envelopex.NewEditedImage(envelopex.EditedImage{ImageURL: "c"}),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", store.Len())
	}
	if _, err := store.Lookup(entries[0].ID); !errors.Is(err, ErrUnknownCorrelation) {
		t.Fatalf("expected oldest entry evicted, got %v", err)
	}

	got, err := store.Lookup(entries[2].ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	got.Payload[0] = 'X'
	again, _ := store.Lookup(entries[2].ID)
	if again.Payload[0] != '{' {
		t.Fatal("lookup must return a copy")
	}
}
