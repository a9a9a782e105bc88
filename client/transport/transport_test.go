package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	resolverx "github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
)

func TestSubmitTurnDecodesEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["message"] != "find a dealer near 90210" {
			t.Errorf("unexpected message %q", body["message"])
		}
		w.Header().Set("X-User-Id", "minted-1")
		_, _ = io.WriteString(w, `{"text":"Here are dealers.","rich_content":[{"kind":"dealer","id":"d1","name":"Buick of Beverly Hills","hours":{"Monday":"9-8"}}]}`)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL + "/")
	env, err := c.SubmitTurn(context.Background(), "find a dealer near 90210")
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if env.Text != "Here are dealers." || len(env.RichContent) != 1 || env.RichContent[0].Dealer == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.RichContent[0].Dealer.Hours["Monday"] != "9-8" {
		t.Fatalf("hours lost: %+v", env.RichContent[0].Dealer)
	}
	if c.UserID() != "minted-1" {
		t.Fatalf("user id should be adopted from the server, got %q", c.UserID())
	}
	if c.InFlight() {
		t.Fatal("in-flight flag must be cleared")
	}
}

func TestSubmitTurnKeepsTextWhenItemsMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"Here are dealers near 90210.","rich_content":[`+
			`{"kind":"dealer","id":"d1","name":"Buick of Beverly Hills","address":"A","phone":"P","hours":"9-5","inventory":[]},`+
			`"oops",`+
			`{"kind":"dealer","id":"d2","name":"Buick of Santa Monica","hours":{"Monday":"9-8"}}]}`)
	}))
	t.Cleanup(srv.Close)

	env, err := New(srv.URL, WithUserID("u1")).SubmitTurn(context.Background(), "find a dealer near 90210")
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if env.Text != "Here are dealers near 90210." {
		t.Fatalf("text lost: %q", env.Text)
	}

	b := resolverx.Resolve(env)
	if b.Dropped != 2 {
		t.Fatalf("expected both malformed items dropped, got %d", b.Dropped)
	}
	items := b.Items()
	if len(items) != 1 || items[0].Dealer == nil || items[0].Dealer.ID != "d2" {
		t.Fatalf("unexpected resolved items: %+v", items)
	}
}

func TestSubmitTurnRejectsConcurrentSubmission(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = io.WriteString(w, `{"text":"ok","rich_content":[]}`)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithUserID("u1"))
	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitTurn(context.Background(), "first")
		done <- err
	}()

	<-entered
	if _, err := c.SubmitTurn(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if _, err := c.SubmitTurn(context.Background(), "third"); err != nil {
		t.Fatalf("gate should reopen, got %v", err)
	}
}

func TestSubmitTurnErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if strings.TrimSpace(body["message"]) == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"message is required"}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if _, err := c.SubmitTurn(context.Background(), " "); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if _, err := c.SubmitTurn(context.Background(), "hi"); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	dead := New("http://127.0.0.1:1")
	if _, err := dead.SubmitTurn(context.Background(), "hi"); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for unreachable server, got %v", err)
	}
}

func TestSubmitImageEditComposesMessage(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body["message"]
		_, _ = io.WriteString(w, `{"text":"done","rich_content":[{"image_url":"https://cdn/new.png"}]}`)
	}))
	t.Cleanup(srv.Close)

	env, err := New(srv.URL).SubmitImageEdit(context.Background(), "https://cdn/old.png", "add a red stripe")
	if err != nil {
		t.Fatalf("SubmitImageEdit() error = %v", err)
	}
	if msg := <-got; msg != "Edit this image: https://cdn/old.png with this prompt: add a red stripe" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if len(env.RichContent) != 1 || env.RichContent[0].Tagged() {
		t.Fatalf("untagged items stay unresolved for the resolver: %+v", env.RichContent)
	}
}

func TestStartersAndReset(t *testing.T) {
	t.Parallel()

	resetQuery := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"starters":["Schedule a test drive"]}`)
		case http.MethodDelete:
			resetQuery <- r.URL.Query().Get("user_id")
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithUserID("u 1"))
	starters, err := c.Starters(context.Background())
	if err != nil || len(starters) != 1 {
		t.Fatalf("Starters() = %v, %v", starters, err)
	}
	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if id := <-resetQuery; id != "u 1" {
		t.Fatalf("unexpected user id: %q", id)
	}
}
