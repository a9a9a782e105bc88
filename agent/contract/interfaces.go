package contract

import (
	"context"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

// ToolAgent is a specialist the orchestrator can delegate a turn to.
type ToolAgent interface {
	Capability() Capability
	Produces() []envelopex.Kind
	Invoke(ctx context.Context, req AgentRequest) (AgentResult, error)
}

type Router interface {
	Route(ctx context.Context, req RouteRequest) (RouteDecision, error)
}

type Registry interface {
	Agent(c Capability) (ToolAgent, bool)
	Capabilities() []Capability
}

// LeadSink accepts confirmed leads.
type LeadSink interface {
	Submit(ctx context.Context, lead envelopex.LeadCapture) error
}
