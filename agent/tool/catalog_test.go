package tool

import (
	"context"
	"testing"

	catalogx "github.com/tanpawarit/vehicle-ai-concierge/agent/catalog"
	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

func newTestExecutor(t *testing.T) Executor {
	t.Helper()
	static, err := catalogx.LoadStatic()
	if err != nil {
		t.Fatalf("LoadStatic() error = %v", err)
	}
	return NewExecutor(static, static)
}

func TestInfosForCapability(t *testing.T) {
	t.Parallel()

	parts := InfosFor(contractx.CapabilityPartsSearch)
	if len(parts) != 1 || parts[0].Name != ToolPartsSearch {
		t.Fatalf("unexpected parts tools: %+v", parts)
	}
	dealers := InfosFor(contractx.CapabilityDealerSearch)
	if len(dealers) != 1 || dealers[0].Name != ToolDealersFind {
		t.Fatalf("unexpected dealer tools: %+v", dealers)
	}
	if InfosFor(contractx.CapabilityImageEdit) != nil {
		t.Fatal("image edit has no tools")
	}
}

func TestExecutorPartsSearch(t *testing.T) {
	t.Parallel()

	out, err := newTestExecutor(t)(context.Background(), ToolPartsSearch, map[string]any{
		"query": "floor liners",
		"model": "Enclave",
		"year":  float64(2024),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	res, ok := out.Result.(PartsSearchOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if res.Count != 1 || res.Results[0].ID != "acc-001" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecutorDealersFindUnknownZip(t *testing.T) {
	t.Parallel()

	out, err := newTestExecutor(t)(context.Background(), ToolDealersFind, map[string]any{"zip_code": "00000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, ok := out.Result.(DealersFindOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if res.Count != 0 || res.Message == "" {
		t.Fatalf("expected explanatory message, got %+v", res)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	t.Parallel()

	out, err := newTestExecutor(t)(context.Background(), "math.evaluate", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tool != "math.evaluate" || out.Error == "" {
		t.Fatalf("expected unavailable error, got %+v", out)
	}
}

func TestExecutorDealersRequiresZip(t *testing.T) {
	t.Parallel()

	out, err := newTestExecutor(t)(context.Background(), ToolDealersFind, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected validation error")
	}
}
