package router

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	calls     int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls > len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	return f.responses[f.calls-1], nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func newTestRouter(t *testing.T, model *fakeChatModel) *Router {
	t.Helper()
	table, err := LoadTable()
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	r, err := New(context.Background(), model, "router prompt", table)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRouteImageEditBypassesModel(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{
		Message: "Edit this image: https://cdn.example.com/car.jpg with this prompt: paint it red",
	})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(got.Capabilities) != 1 || got.Capabilities[0] != contractx.CapabilityImageEdit {
		t.Fatalf("unexpected capabilities: %v", got.Capabilities)
	}
	if got.Source != SourceRule {
		t.Fatalf("unexpected source: %s", got.Source)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called, got %d calls", model.calls)
	}
}

func TestRouteModelDecisionIsNormalized(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []*schema.Message{
		{Content: `{"capabilities":["website_search","parts_search","dealer_search","website_search"],"direct_reply":"","reason":"offers and parts near me"}`},
	}}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{Message: "roof racks for my Enclave and dealers near 90210"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := []contractx.Capability{contractx.CapabilityDealerSearch, contractx.CapabilityPartsSearch}
	if len(got.Capabilities) != len(want) {
		t.Fatalf("Route() = %v, want %v", got.Capabilities, want)
	}
	for i := range want {
		if got.Capabilities[i] != want[i] {
			t.Fatalf("Route()[%d] = %s, want %s", i, got.Capabilities[i], want[i])
		}
	}
	if got.Source != SourceModel {
		t.Fatalf("unexpected source: %s", got.Source)
	}
}

func TestRouteDirectReply(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []*schema.Message{
		{Content: `{"capabilities":[],"direct_reply":"My expertise is the Buick lineup. How can I help with a Buick?","reason":"other brand"}`},
	}}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{Message: "tell me about another brand's truck"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(got.Capabilities) != 0 || got.DirectReply == "" {
		t.Fatalf("expected direct reply only, got %+v", got)
	}
}

func TestRouteModelFailureFallsBackToKeywords(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{err: errors.New("upstream 503")}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{Message: "Find a dealership near 90210"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != SourceKeywords {
		t.Fatalf("unexpected source: %s", got.Source)
	}
	if len(got.Capabilities) != 1 || got.Capabilities[0] != contractx.CapabilityDealerSearch {
		t.Fatalf("unexpected capabilities: %v", got.Capabilities)
	}
}

func TestRouteInvalidJSONFallsBackToDefault(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []*schema.Message{{Content: "I think website search"}}}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{Message: "what is new this year?"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != SourceDefault || got.Capabilities[0] != contractx.CapabilityWebsiteSearch {
		t.Fatalf("unexpected decision: %+v", got)
	}
}

func TestRouteUnknownCapabilitiesOnlyFallsBack(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []*schema.Message{{Content: `{"capabilities":["weather"]}`}}}
	r := newTestRouter(t, model)

	got, err := r.Route(context.Background(), contractx.RouteRequest{Message: "Get me a quote"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Source != SourceKeywords || got.Capabilities[0] != contractx.CapabilityLeadCapture {
		t.Fatalf("unexpected decision: %+v", got)
	}
}

func TestRouteEmptyMessage(t *testing.T) {
	t.Parallel()

	r := NewKeywordRouter(mustTable(t))
	if _, err := r.Route(context.Background(), contractx.RouteRequest{Message: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Route() error = %v, want ErrValidation", err)
	}
}

func mustTable(t *testing.T) *Table {
	t.Helper()
	table, err := LoadTable()
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	return table
}

func TestTableNormalizeSoleCapability(t *testing.T) {
	t.Parallel()

	table := mustTable(t)
	got := table.Normalize([]contractx.Capability{
		contractx.CapabilityWebsiteSearch,
		contractx.CapabilityImageEdit,
		contractx.CapabilityLeadCapture,
	})
	if len(got) != 1 || got[0] != contractx.CapabilityImageEdit {
		t.Fatalf("Normalize() = %v", got)
	}
}

func TestTableNormalizeOrdersByPrecedence(t *testing.T) {
	t.Parallel()

	table := mustTable(t)
	got := table.Normalize([]contractx.Capability{
		contractx.CapabilityWebsiteSearch,
		contractx.CapabilityDealerSearch,
		"unknown",
		contractx.CapabilityLeadCapture,
	})
	want := []contractx.Capability{
		contractx.CapabilityLeadCapture,
		contractx.CapabilityDealerSearch,
		contractx.CapabilityWebsiteSearch,
	}
	if len(got) != len(want) {
		t.Fatalf("Normalize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Normalize()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseTableRejectsDuplicatePrecedence(t *testing.T) {
	t.Parallel()

	raw := []byte(`
default: a
capabilities:
  - capability: a
    precedence: 1
  - capability: b
    precedence: 1
`)
	if _, err := ParseTable(raw); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("ParseTable() error = %v, want ErrValidation", err)
	}
}
