package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

func loadStatic(t *testing.T) *Static {
	t.Helper()
	s, err := LoadStatic()
	if err != nil {
		t.Fatalf("LoadStatic() error = %v", err)
	}
	return s
}

func TestQueryStems(t *testing.T) {
	t.Parallel()

	got := QueryStems("Brakes gas Pads  roofs")
	want := []string{"brake", "gas", "pad", "roof"}
	if len(got) != len(want) {
		t.Fatalf("QueryStems() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("QueryStems()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchPartRequiresSameCompatibilityEntry(t *testing.T) {
	t.Parallel()

	part := envelopex.Accessory{
		Name:        "Front Brake Pad Kit",
		Description: "pads",
		Compatibility: []envelopex.Compatibility{
			{Model: "Encore GX", Years: []int{2021}},
			{Model: "Envista", Years: []int{2025}},
		},
	}

	if !MatchPart(part, PartsQuery{Query: "brakes", Model: "encore gx", Year: 2021}) {
		t.Fatal("expected match for encore gx 2021")
	}
	if MatchPart(part, PartsQuery{Model: "Encore GX", Year: 2025}) {
		t.Fatal("model and year from different entries must not match")
	}
	if MatchPart(part, PartsQuery{Query: "flux capacitor"}) {
		t.Fatal("expected no match for unrelated query")
	}
	if !MatchPart(part, PartsQuery{}) {
		t.Fatal("empty query must match everything")
	}
}

func TestStaticSearchParts(t *testing.T) {
	t.Parallel()

	s := loadStatic(t)

	roof, err := s.SearchParts(context.Background(), PartsQuery{Query: "roof"})
	if err != nil {
		t.Fatalf("SearchParts() error = %v", err)
	}
	if len(roof) != 2 {
		t.Fatalf("expected 2 roof parts, got %d", len(roof))
	}

	brakes, err := s.SearchParts(context.Background(), PartsQuery{Query: "brakes", Model: "Encore GX", Year: 2023})
	if err != nil {
		t.Fatalf("SearchParts() error = %v", err)
	}
	if len(brakes) != 1 || brakes[0].PartNumber != "13548564" {
		t.Fatalf("unexpected brake results: %+v", brakes)
	}
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	// Los Angeles to Detroit is roughly 1,980 miles.
	d := Haversine(Location{Lat: 34.0522, Lon: -118.2437}, Location{Lat: 42.3314, Lon: -83.0458})
	if d < 1950 || d > 2010 {
		t.Fatalf("unexpected distance: %.2f", d)
	}
	if Haversine(Location{Lat: 1, Lon: 1}, Location{Lat: 1, Lon: 1}) != 0 {
		t.Fatal("distance to self must be zero")
	}
}

func TestStaticNearestDealers(t *testing.T) {
	t.Parallel()

	s := loadStatic(t)
	dealers, err := s.NearestDealers(context.Background(), "90210", DefaultDealerLimit)
	if err != nil {
		t.Fatalf("NearestDealers() error = %v", err)
	}
	if len(dealers) != 5 {
		t.Fatalf("expected 5 dealers, got %d", len(dealers))
	}
	if dealers[0].ID != "dlr-ca-001" {
		t.Fatalf("expected Beverly Hills first, got %s", dealers[0].ID)
	}
	for i, d := range dealers {
		if d.DistanceMiles == nil {
			t.Fatalf("dealer %d has no distance", i)
		}
		if rounded := math.Round(*d.DistanceMiles*100) / 100; rounded != *d.DistanceMiles {
			t.Fatalf("distance not rounded to 2dp: %v", *d.DistanceMiles)
		}
		if i > 0 && *dealers[i-1].DistanceMiles > *d.DistanceMiles {
			t.Fatalf("dealers not sorted by distance at %d", i)
		}
		if d.ID == "dlr-mi-001" || d.ID == "dlr-mi-002" {
			t.Fatalf("michigan dealer ranked in top 5 for 90210: %s", d.ID)
		}
	}
}

func TestStaticNearestDealersUnknownZip(t *testing.T) {
	t.Parallel()

	s := loadStatic(t)
	if _, err := s.NearestDealers(context.Background(), "00000", 5); !errors.Is(err, ErrUnknownZip) {
		t.Fatalf("NearestDealers() error = %v, want ErrUnknownZip", err)
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike() = %q", got)
	}
}
