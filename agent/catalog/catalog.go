// Package catalog answers parts and dealership lookups for the search agents.
package catalog

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

var ErrUnknownZip = errors.New("no location for zip code")

const (
	earthRadiusMiles   = 3958.8
	DefaultDealerLimit = 5
)

type PartsQuery struct {
	Query string `json:"query,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

type PartsCatalog interface {
	SearchParts(ctx context.Context, q PartsQuery) ([]envelopex.Accessory, error)
}

type DealerDirectory interface {
	NearestDealers(ctx context.Context, zip string, limit int) ([]envelopex.Dealer, error)
}

// Location is a dealership or zip centroid position.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocatedDealer is a dealer record together with its coordinates.
type LocatedDealer struct {
	envelopex.Dealer
	Location
}

// MatchPart reports whether part satisfies q. Every query word, or its naive
// singular, must appear in name+description. Model and year must be satisfied
// by the same compatibility entry.
func MatchPart(part envelopex.Accessory, q PartsQuery) bool {
	if stems := QueryStems(q.Query); len(stems) > 0 {
		text := strings.ToLower(part.Name + " " + part.Description)
		for _, stem := range stems {
			if !strings.Contains(text, stem) {
				return false
			}
		}
	}

	model := strings.ToLower(strings.TrimSpace(q.Model))
	if model == "" && q.Year == 0 {
		return true
	}
	for _, comp := range part.Compatibility {
		if model != "" && strings.ToLower(comp.Model) != model {
			continue
		}
		if q.Year != 0 && !containsYear(comp.Years, q.Year) {
			continue
		}
		return true
	}
	return false
}

// QueryStems lowercases the query words and strips a plural "s" from words
// longer than three letters. A word matches when its stem is a substring.
func QueryStems(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	stems := make([]string, 0, len(words))
	for _, word := range words {
		if strings.HasSuffix(word, "s") && len(word) > 3 {
			word = strings.TrimRight(word, "s")
		}
		stems = append(stems, word)
	}
	return stems
}

func FilterParts(parts []envelopex.Accessory, q PartsQuery) []envelopex.Accessory {
	out := make([]envelopex.Accessory, 0, len(parts))
	for _, p := range parts {
		if MatchPart(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// Haversine returns the great-circle distance in miles.
func Haversine(a, b Location) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest ranks dealers by distance from origin and keeps the first limit.
// Distances are rounded to two decimals.
func Nearest(origin Location, dealers []LocatedDealer, limit int) []envelopex.Dealer {
	if limit <= 0 {
		limit = DefaultDealerLimit
	}
	ranked := make([]envelopex.Dealer, 0, len(dealers))
	for _, d := range dealers {
		dist := math.Round(Haversine(origin, d.Location)*100) / 100
		dealer := d.Dealer
		dealer.DistanceMiles = &dist
		ranked = append(ranked, dealer)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].DistanceMiles < *ranked[j].DistanceMiles
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func containsYear(years []int, year int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
