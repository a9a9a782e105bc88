package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultHistoryLimit bounds how many exchanges are kept as routing context.
const DefaultHistoryLimit = 20

// Conversation is the context the orchestrator carries between turns of one user.
type Conversation struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Exchanges []Exchange `json:"exchanges,omitempty"`
	Turns     int        `json:"turns"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Exchange is one finished user turn and the reply text shown for it.
type Exchange struct {
	User         string    `json:"user"`
	Assistant    string    `json:"assistant"`
	Capabilities []string  `json:"capabilities,omitempty"`
	At           time.Time `json:"at"`
}

// SessionIDFor derives the stable session id of a user.
func SessionIDFor(userID string) string {
	return "session_for_" + strings.TrimSpace(userID)
}

func NewConversation(userID string, now time.Time) *Conversation {
	return &Conversation{
		SessionID: SessionIDFor(userID),
		UserID:    strings.TrimSpace(userID),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) IsFirstTurn() bool {
	return c == nil || c.Turns == 0
}

// History returns a copy safe to hand to agents.
func (c *Conversation) History() []Exchange {
	if c == nil || len(c.Exchanges) == 0 {
		return nil
	}
	out := make([]Exchange, len(c.Exchanges))
	for i, ex := range c.Exchanges {
		out[i] = ex
		if len(ex.Capabilities) > 0 {
			out[i].Capabilities = append([]string(nil), ex.Capabilities...)
		}
	}
	return out
}

// Append records a finished exchange and trims the oldest beyond limit.
func (c *Conversation) Append(ex Exchange, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if ex.At.IsZero() {
		ex.At = time.Now().UTC()
	}
	c.Exchanges = append(c.Exchanges, ex)
	if over := len(c.Exchanges) - limit; over > 0 {
		c.Exchanges = append([]Exchange(nil), c.Exchanges[over:]...)
	}
	c.Turns++
	c.UpdatedAt = ex.At.UTC()
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Exchanges = c.History()
	return &cp
}

func (c *Conversation) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("conversation user id is empty")
	}
	if c.Turns < 0 {
		return fmt.Errorf("conversation turns must be >= 0, got %d", c.Turns)
	}
	return nil
}
