// Package orchestratornode holds the lambda nodes of the turn-handling graph.
package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidUser    = fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	Turn contractx.ChatTurn
}

type GraphOutput struct {
	Envelope envelopex.Envelope
}

// AgentOutcome is what one dispatched agent contributed.
type AgentOutcome struct {
	Capability contractx.Capability
	Result     contractx.AgentResult
	Err        error
	Elapsed    time.Duration
}

func (o AgentOutcome) Failed() bool {
	return o.Err != nil || o.Result.Empty()
}

type GraphState struct {
	Turn      contractx.ChatTurn
	SessionID string
	Now       time.Time

	Conversation *statex.Conversation
	FirstTurn    bool

	Decision contractx.RouteDecision
	Outcomes []AgentOutcome
	Envelope envelopex.Envelope
	Fallback bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.Turn.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	message := strings.TrimSpace(in.Turn.Message)
	if message == "" {
		return nil, ErrInvalidMessage
	}

	now := nowFn().UTC()
	turn := in.Turn
	turn.UserID = userID
	turn.Message = message
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}

	return &GraphState{
		Turn:      turn,
		SessionID: statex.SessionIDFor(userID),
		Now:       now,
	}, nil
}
