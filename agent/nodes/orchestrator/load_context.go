package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

// LoadContext attaches the stored conversation. A store failure starts a fresh
// conversation instead of failing the turn.
func LoadContext(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrNotFound):
		conv = statex.NewConversation(in.Turn.UserID, in.Now)
	default:
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("load conversation failed, starting fresh")
		conv = statex.NewConversation(in.Turn.UserID, in.Now)
	}

	in.Conversation = conv
	in.FirstTurn = conv.IsFirstTurn()
	return in, nil
}
