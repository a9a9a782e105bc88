package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

// RouteIntent asks the router which agents should run and drops capabilities
// with no registered agent.
func RouteIntent(ctx context.Context, in *GraphState, router contractx.Router, registry contractx.Registry) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	decision, err := router.Route(ctx, contractx.RouteRequest{
		Message: in.Turn.Message,
		History: in.Conversation.History(),
	})
	if err != nil {
		return nil, err
	}

	available := decision.Capabilities[:0:0]
	for _, c := range decision.Capabilities {
		if _, ok := registry.Agent(c); !ok {
			log.Warn().Str("capability", string(c)).Msg("no agent registered for routed capability")
			continue
		}
		available = append(available, c)
	}
	decision.Capabilities = available

	log.Info().
		Str("session_id", in.SessionID).
		Str("source", decision.Source).
		Int("agents", len(available)).
		Bool("direct_reply", decision.DirectReply != "").
		Msg("turn routed")

	in.Decision = decision
	return in, nil
}
