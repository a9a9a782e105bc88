package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

const saveTimeout = 5 * time.Second

// SaveContext appends the finished exchange and persists the conversation.
// Store failures are logged only.
func SaveContext(ctx context.Context, in *GraphState, store statex.Store, historyLimit int) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	caps := make([]string, 0, len(in.Decision.Capabilities))
	for _, c := range in.Decision.Capabilities {
		caps = append(caps, string(c))
	}

	// History feeds later prompts, so it gets the same text guard as the reply.
	conv := in.Conversation.Clone()
	conv.Append(statex.Exchange{
		User:         in.Turn.Message,
		Assistant:    in.Envelope.Sanitize().Text,
		Capabilities: caps,
		At:           in.Now,
	}, historyLimit)

	if err := conv.Validate(); err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Msg("conversation invalid, not saved")
		return in, nil
	}
	// The turn deadline may already have passed; the exchange is still recorded.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := store.Save(saveCtx, conv); err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Msg("save conversation failed")
		return in, nil
	}
	return in, nil
}
