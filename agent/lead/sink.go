package lead

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	qstashx "github.com/tanpawarit/vehicle-ai-concierge/pkg/qstash"
)

var (
	_ contractx.LeadSink = (*MemorySink)(nil)
	_ contractx.LeadSink = (*PostgresSink)(nil)
	_ contractx.LeadSink = (*QStashSink)(nil)
	_ contractx.LeadSink = MultiSink(nil)
)

// DedupKey identifies a lead by contact and vehicle so resubmits collapse.
func DedupKey(l envelopex.LeadCapture) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join([]string{
		l.Email, l.VehicleModel, l.ZipCode,
	}, "|"))))
	return hex.EncodeToString(sum[:8])
}

type MemorySink struct {
	mu    sync.Mutex
	leads []envelopex.LeadCapture
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Submit(_ context.Context, l envelopex.LeadCapture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, l)
	return nil
}

func (m *MemorySink) Leads() []envelopex.LeadCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]envelopex.LeadCapture(nil), m.leads...)
}

type leadRow struct {
	bun.BaseModel `bun:"table:leads,alias:ld"`

	ID                string    `bun:"id,pk"`
	FirstName         string    `bun:"first_name,notnull"`
	LastName          string    `bun:"last_name,notnull"`
	Email             string    `bun:"email,notnull"`
	PhoneNumber       string    `bun:"phone_number"`
	ZipCode           string    `bun:"zip_code,notnull"`
	ContactPreference string    `bun:"contact_preference,notnull"`
	VehicleModel      string    `bun:"vehicle_model,notnull"`
	VehicleYear       int       `bun:"vehicle_year"`
	Notes             string    `bun:"notes"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresSink stores leads in the leads table.
type PostgresSink struct {
	db bun.IDB
}

func NewPostgresSink(db bun.IDB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) CreateSchema(ctx context.Context) error {
	_, err := p.db.NewCreateTable().Model((*leadRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create leads table: %w", err)
	}
	return nil
}

func (p *PostgresSink) Submit(ctx context.Context, l envelopex.LeadCapture) error {
	row := leadRow{
		ID:                DedupKey(l),
		FirstName:         l.FirstName,
		LastName:          l.LastName,
		Email:             l.Email,
		PhoneNumber:       l.PhoneNumber,
		ZipCode:           l.ZipCode,
		ContactPreference: l.ContactPreference,
		VehicleModel:      l.VehicleModel,
		VehicleYear:       l.VehicleYear,
		Notes:             l.Notes,
		CreatedAt:         time.Now().UTC(),
	}
	_, err := p.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("phone_number = EXCLUDED.phone_number").
		Set("contact_preference = EXCLUDED.contact_preference").
		Set("notes = EXCLUDED.notes").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// Publisher is the QStash call the webhook sink depends on.
type Publisher interface {
	Publish(ctx context.Context, body any, dedupID string) (qstashx.PublishResponse, error)
}

// QStashSink forwards leads to a CRM webhook through QStash.
type QStashSink struct {
	pub Publisher
}

func NewQStashSink(pub Publisher) *QStashSink {
	return &QStashSink{pub: pub}
}

func (q *QStashSink) Submit(ctx context.Context, l envelopex.LeadCapture) error {
	res, err := q.pub.Publish(ctx, l, DedupKey(l))
	if err != nil {
		return fmt.Errorf("publish lead: %w", err)
	}
	log.Info().Str("message_id", res.MessageID).Bool("deduplicated", res.Deduplicated).Msg("lead published")
	return nil
}

// MultiSink submits to every sink and joins their errors.
type MultiSink []contractx.LeadSink

func (m MultiSink) Submit(ctx context.Context, l envelopex.LeadCapture) error {
	var errs []error
	for _, s := range m {
		if err := s.Submit(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
