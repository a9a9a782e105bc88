package resolver

import (
	"encoding/json"
	"testing"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

func decode(t *testing.T, raw string) envelopex.Envelope {
	t.Helper()
	var env envelopex.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestResolveGroupsConsecutiveKinds(t *testing.T) {
	t.Parallel()

	env := decode(t, `{"text":"t","rich_content":[
		{"kind":"dealer","id":"d1","name":"A"},
		{"kind":"dealer","id":"d2","name":"B"},
		{"kind":"accessory","id":"a1","name":"Liners","price":189.99},
		{"kind":"dealer","id":"d3","name":"C"}
	]}`)

	b := Resolve(env)
	if len(b.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(b.Sections))
	}
	if b.Sections[0].Kind != envelopex.KindDealer || len(b.Sections[0].Items) != 2 {
		t.Fatalf("unexpected first section: %+v", b.Sections[0])
	}
	if b.Sections[1].Kind != envelopex.KindAccessory || b.Sections[2].Kind != envelopex.KindDealer {
		t.Fatalf("unexpected section order: %s, %s", b.Sections[1].Kind, b.Sections[2].Kind)
	}
	if len(b.Items()) != 4 || b.Dropped != 0 {
		t.Fatalf("items = %d, dropped = %d", len(b.Items()), b.Dropped)
	}
}

func TestResolveMixedUntaggedBatch(t *testing.T) {
	t.Parallel()

	env := decode(t, `{"text":"t","rich_content":[
		{"title":"Enclave","link":"https://buick.com/enclave","snippet":"3-row"},
		{"image_url":"https://cdn/new.png"}
	]}`)

	b := Resolve(env)
	if len(b.Sections) != 2 {
		t.Fatalf("each item resolves on its own, got %d sections", len(b.Sections))
	}
	if b.Sections[0].Kind != envelopex.KindSearchResult || b.Sections[0].Items[0].SearchResult.Title != "Enclave" {
		t.Fatalf("unexpected search section: %+v", b.Sections[0])
	}
	if b.Sections[1].Items[0].EditedImage.ImageURL != "https://cdn/new.png" {
		t.Fatalf("unexpected image section: %+v", b.Sections[1])
	}
}

func TestResolveGalleryFlag(t *testing.T) {
	t.Parallel()

	env := envelopex.New("t", []envelopex.RichItem{
		envelopex.NewSearchResult(envelopex.SearchResult{Title: "a", Link: "l", Snippet: "s"}),
		envelopex.NewSearchResult(envelopex.SearchResult{Title: "b", Link: "l", Snippet: "s", ImageURL: "https://img"}),
	})
	b := Resolve(env)
	if len(b.Sections) != 1 || !b.Sections[0].Gallery {
		t.Fatalf("expected one gallery section, got %+v", b.Sections)
	}
}

func TestResolveDropsAmbiguousAndDegenerate(t *testing.T) {
	t.Parallel()

	env := decode(t, `{"text":"only text","rich_content":[
		{},
		{"foo":"bar"},
		{"kind":"hologram","url":"x"}
	]}`)

	b := Resolve(env)
	if !b.TextOnly() {
		t.Fatalf("expected text only, got %+v", b.Sections)
	}
	if b.Dropped != 2 {
		t.Fatalf("expected 2 dropped items, got %d", b.Dropped)
	}
	if b.Text != "only text" {
		t.Fatalf("unexpected text: %q", b.Text)
	}
}
