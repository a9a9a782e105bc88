package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

func TestOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:             "k",
		Model:              "openai/gpt-4o-mini",
		Temperature:        0.3,
		MaxCompletionToken: 1000,
		RouterModel:        "google/gemini-2.5-flash",
		RouterTemperature:  0,
		StarterTemperature: 0.8,
	}

	router := cfg.OpenRouterFor(RoleRouter)
	if router.Model != "google/gemini-2.5-flash" || router.Temperature != 0 {
		t.Fatalf("unexpected router config: %+v", router)
	}
	parts := cfg.OpenRouterFor(RoleParts)
	if parts.Model != "openai/gpt-4o-mini" || parts.Temperature != 0.3 {
		t.Fatalf("unexpected parts config: %+v", parts)
	}
	if *parts.MaxCompletionToken != 1000 {
		t.Fatalf("unexpected max tokens: %d", *parts.MaxCompletionToken)
	}
	if starter := cfg.OpenRouterFor(RoleStarter); starter.Temperature != 0.8 {
		t.Fatalf("unexpected starter temperature: %v", starter.Temperature)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (&Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}
