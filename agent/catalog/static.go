package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

var (
	//go:embed data/parts.json
	partsRaw []byte

	//go:embed data/dealerships.json
	dealershipsRaw []byte

	//go:embed data/zip_codes.json
	zipCodesRaw []byte
)

// Static serves the catalog bundled with the binary.
type Static struct {
	parts   []envelopex.Accessory
	dealers []LocatedDealer
	zips    map[string]Location
}

var (
	_ PartsCatalog    = (*Static)(nil)
	_ DealerDirectory = (*Static)(nil)
)

func LoadStatic() (*Static, error) {
	var parts struct {
		Parts []envelopex.Accessory `json:"parts"`
	}
	if err := json.Unmarshal(partsRaw, &parts); err != nil {
		return nil, fmt.Errorf("decode parts data: %w", err)
	}

	var dealers struct {
		Dealerships []LocatedDealer `json:"dealerships"`
	}
	if err := json.Unmarshal(dealershipsRaw, &dealers); err != nil {
		return nil, fmt.Errorf("decode dealership data: %w", err)
	}

	var zips struct {
		ZipCodes map[string]Location `json:"zip_codes"`
	}
	if err := json.Unmarshal(zipCodesRaw, &zips); err != nil {
		return nil, fmt.Errorf("decode zip code data: %w", err)
	}

	return NewStatic(parts.Parts, dealers.Dealerships, zips.ZipCodes), nil
}

func NewStatic(parts []envelopex.Accessory, dealers []LocatedDealer, zips map[string]Location) *Static {
	return &Static{parts: parts, dealers: dealers, zips: zips}
}

func (s *Static) SearchParts(_ context.Context, q PartsQuery) ([]envelopex.Accessory, error) {
	return FilterParts(s.parts, q), nil
}

func (s *Static) NearestDealers(_ context.Context, zip string, limit int) ([]envelopex.Dealer, error) {
	origin, ok := s.zips[strings.TrimSpace(zip)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZip, zip)
	}
	return Nearest(origin, s.dealers, limit), nil
}

func (s *Static) Parts() []envelopex.Accessory { return s.parts }

func (s *Static) Dealers() []LocatedDealer { return s.dealers }

func (s *Static) Zips() map[string]Location { return s.zips }
