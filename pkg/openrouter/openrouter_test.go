package openrouter

import (
	"context"
	"testing"
)

func TestNewClientNeedsKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{Model: "m"}); c != nil {
		t.Fatal("expected nil client without api key")
	}
	if c := NewClient(Config{APIKey: "k"}); c == nil {
		t.Fatal("expected client")
	}
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k"}
	if _, err := cfg.New(context.Background()); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestBaseURLDefault(t *testing.T) {
	t.Parallel()

	if got := (&Config{}).baseURL(); got != DefaultBaseURL {
		t.Fatalf("baseURL() = %q", got)
	}
	if got := (&Config{BaseURL: "http://x/v1/ "}).baseURL(); got != "http://x/v1" {
		t.Fatalf("baseURL() = %q", got)
	}
}
