package state

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrNilConversation = errors.New("conversation is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

// Store keeps conversation context between turns.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, sessionID string) error
}
