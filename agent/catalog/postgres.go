package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

type partRow struct {
	bun.BaseModel `bun:"table:accessories,alias:acc"`

	ID            string                    `bun:"id,pk"`
	Name          string                    `bun:"name,notnull"`
	Price         float64                   `bun:"price,notnull"`
	Description   string                    `bun:"description"`
	PartNumber    string                    `bun:"part_number"`
	Compatibility []envelopex.Compatibility `bun:"compatibility,type:jsonb"`
}

type dealerRow struct {
	bun.BaseModel `bun:"table:dealerships,alias:dlr"`

	ID        string                     `bun:"id,pk"`
	Name      string                     `bun:"name,notnull"`
	Address   string                     `bun:"address"`
	Phone     string                     `bun:"phone"`
	Lat       float64                    `bun:"lat"`
	Lon       float64                    `bun:"lon"`
	Hours     map[string]string          `bun:"hours,type:jsonb"`
	Inventory []envelopex.InventoryEntry `bun:"inventory,type:jsonb"`
}

type zipRow struct {
	bun.BaseModel `bun:"table:zip_codes,alias:zc"`

	Zip string  `bun:"zip,pk"`
	Lat float64 `bun:"lat"`
	Lon float64 `bun:"lon"`
}

// Postgres serves the catalog from the accessories, dealerships and zip_codes tables.
type Postgres struct {
	db bun.IDB
}

var (
	_ PartsCatalog    = (*Postgres)(nil)
	_ DealerDirectory = (*Postgres)(nil)
)

func NewPostgres(db bun.IDB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) SearchParts(ctx context.Context, q PartsQuery) ([]envelopex.Accessory, error) {
	var rows []partRow
	sel := p.db.NewSelect().Model(&rows).OrderExpr("acc.id ASC")
	for _, stem := range QueryStems(q.Query) {
		sel = sel.Where("(acc.name || ' ' || acc.description) ILIKE ?", "%"+escapeLike(stem)+"%")
	}
	if err := sel.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select accessories: %w", err)
	}

	parts := make([]envelopex.Accessory, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, r.toAccessory())
	}
	// Compatibility lives in jsonb; the SQL prefilter only narrows by text.
	return FilterParts(parts, q), nil
}

func (p *Postgres) NearestDealers(ctx context.Context, zip string, limit int) ([]envelopex.Dealer, error) {
	var origin zipRow
	err := p.db.NewSelect().Model(&origin).Where("zc.zip = ?", strings.TrimSpace(zip)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZip, zip)
	}
	if err != nil {
		return nil, fmt.Errorf("select zip code: %w", err)
	}

	var rows []dealerRow
	if err := p.db.NewSelect().Model(&rows).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select dealerships: %w", err)
	}

	located := make([]LocatedDealer, 0, len(rows))
	for _, r := range rows {
		located = append(located, r.toLocated())
	}
	return Nearest(Location{Lat: origin.Lat, Lon: origin.Lon}, located, limit), nil
}

// CreateSchema creates the catalog tables when missing.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*partRow)(nil), (*dealerRow)(nil), (*zipRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create catalog table: %w", err)
		}
	}
	return nil
}

// Seed copies the bundled catalog into Postgres, keeping existing rows.
func Seed(ctx context.Context, db bun.IDB, src *Static) error {
	parts := make([]partRow, 0, len(src.Parts()))
	for _, a := range src.Parts() {
		parts = append(parts, partRow{
			ID:            a.ID,
			Name:          a.Name,
			Price:         float64(a.Price),
			Description:   a.Description,
			PartNumber:    a.PartNumber,
			Compatibility: a.Compatibility,
		})
	}
	dealers := make([]dealerRow, 0, len(src.Dealers()))
	for _, d := range src.Dealers() {
		dealers = append(dealers, dealerRow{
			ID:        d.ID,
			Name:      d.Name,
			Address:   d.Address,
			Phone:     d.Phone,
			Lat:       d.Lat,
			Lon:       d.Lon,
			Hours:     d.Hours,
			Inventory: d.Inventory,
		})
	}
	zips := make([]zipRow, 0, len(src.Zips()))
	for zip, loc := range src.Zips() {
		zips = append(zips, zipRow{Zip: zip, Lat: loc.Lat, Lon: loc.Lon})
	}

	if len(parts) > 0 {
		if _, err := db.NewInsert().Model(&parts).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed accessories: %w", err)
		}
	}
	if len(dealers) > 0 {
		if _, err := db.NewInsert().Model(&dealers).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed dealerships: %w", err)
		}
	}
	if len(zips) > 0 {
		if _, err := db.NewInsert().Model(&zips).On("CONFLICT (zip) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed zip codes: %w", err)
		}
	}
	return nil
}

func (r partRow) toAccessory() envelopex.Accessory {
	return envelopex.Accessory{
		ID:            r.ID,
		Name:          r.Name,
		Price:         envelopex.Price(r.Price),
		Description:   r.Description,
		PartNumber:    r.PartNumber,
		Compatibility: r.Compatibility,
	}
}

func (r dealerRow) toLocated() LocatedDealer {
	return LocatedDealer{
		Dealer: envelopex.Dealer{
			ID:        r.ID,
			Name:      r.Name,
			Address:   r.Address,
			Phone:     r.Phone,
			Hours:     r.Hours,
			Inventory: r.Inventory,
		},
		Location: Location{Lat: r.Lat, Lon: r.Lon},
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
