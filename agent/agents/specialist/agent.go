// Package specialist implements the tool agents the orchestrator delegates to.
package specialist

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

const historyWindow = 10

// base carries the identity every agent reports.
type base struct {
	capability contractx.Capability
	produces   []envelopex.Kind
}

func (b base) Capability() contractx.Capability {
	return b.capability
}

func (b base) Produces() []envelopex.Kind {
	return append([]envelopex.Kind(nil), b.produces...)
}

func (b base) result(text string, items ...envelopex.RichItem) contractx.AgentResult {
	return contractx.AgentResult{
		Capability: b.capability,
		Text:       strings.TrimSpace(text),
		Items:      items,
	}
}

func (b base) fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", contractx.ErrToolAgent, b.capability, fmt.Sprintf(format, args...))
}

func validateRequest(req contractx.AgentRequest) error {
	if strings.TrimSpace(req.Turn.Message) == "" {
		return fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}
	return nil
}

type exchangeView struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

func recentHistory(history []statex.Exchange) []exchangeView {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	out := make([]exchangeView, 0, len(history))
	for _, ex := range history {
		out = append(out, exchangeView{User: ex.User, Assistant: ex.Assistant})
	}
	return out
}

// modelInput renders the user message and history as the JSON payload the
// prompts expect.
func modelInput(req contractx.AgentRequest, extra map[string]any) (string, error) {
	payload := map[string]any{
		"user_message": req.Turn.Message,
		"history":      recentHistory(req.History),
	}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal model payload: %v", contractx.ErrValidation, err)
	}
	return string(raw), nil
}
