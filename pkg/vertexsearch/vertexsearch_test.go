package vertexsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchURL(t *testing.T) {
	t.Parallel()

	global := Config{Project: "p", EngineID: "e"}.searchURL()
	if !strings.HasPrefix(global, "https://discoveryengine.googleapis.com/v1/projects/p/locations/global/") {
		t.Fatalf("unexpected global url: %s", global)
	}
	regional := Config{Project: "p", Location: "us", EngineID: "e"}.searchURL()
	if !strings.HasPrefix(regional, "https://us-discoveryengine.googleapis.com/") {
		t.Fatalf("unexpected regional url: %s", regional)
	}
	if !strings.HasSuffix(regional, "/engines/e/servingConfigs/default_search:search") {
		t.Fatalf("unexpected suffix: %s", regional)
	}
}

func TestSearchMapsResults(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotQuery, _ = body["query"].(string)
		fmt.Fprint(w, `{
			"results":[
				{"document":{"derivedStructData":{"title":"2025 Enclave","link":"https://www.buick.com/enclave","snippets":[{"snippet":"Three rows."}],"pagemap":{"cse_image":[{"src":"https://img/enclave.jpg"}]}}}},
				{"document":{"derivedStructData":{"title":"Offers","contextLink":"https://www.buick.com/offers","snippets":[{"snippet":" "}]}}}
			],
			"summary":{"summaryText":"The Enclave seats seven."}
		}`)
	}))
	t.Cleanup(server.Close)

	client := NewClientWith(server.Client(), Config{Project: "p", EngineID: "e", Endpoint: server.URL})
	out, err := client.Search(context.Background(), "enclave seating")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "enclave seating" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
	if out.Summary != "The Enclave seats seven." {
		t.Fatalf("unexpected summary: %q", out.Summary)
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	if out.Results[0].Image != "https://img/enclave.jpg" || out.Results[0].Snippets[0] != "Three rows." {
		t.Fatalf("unexpected first result: %+v", out.Results[0])
	}
	if out.Results[1].Link != "https://www.buick.com/offers" || len(out.Results[1].Snippets) != 0 {
		t.Fatalf("unexpected second result: %+v", out.Results[1])
	}
}

func TestSearchHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	client := NewClientWith(server.Client(), Config{Project: "p", EngineID: "e", Endpoint: server.URL})
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error for 403")
	}
}
