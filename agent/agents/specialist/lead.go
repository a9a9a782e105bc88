package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	leadx "github.com/tanpawarit/vehicle-ai-concierge/agent/lead"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
)

const leadClosingReply = "Excellent! We'll be in touch shortly with your quote. Is there anything else I can assist you with today?"

type leadLLMOutput struct {
	Lead      envelopex.LeadCapture `json:"lead"`
	Confirmed bool                  `json:"confirmed"`
	Reply     string                `json:"reply"`
}

type LeadCapture struct {
	base
	runner compose.Runnable[map[string]any, leadLLMOutput]
	sink   contractx.LeadSink
}

var _ contractx.ToolAgent = (*LeadCapture)(nil)

func NewLeadCapture(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, sink contractx.LeadSink) (*LeadCapture, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: lead prompt", contractx.ErrPromptMissing)
	}
	runner, err := llmx.CompileStructured[leadLLMOutput](ctx, chatModel, systemPrompt, "lead_capture.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile lead graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LeadCapture{
		base: base{
			capability: contractx.CapabilityLeadCapture,
			produces:   []envelopex.Kind{envelopex.KindLeadCapture},
		},
		runner: runner,
		sink:   sink,
	}, nil
}

// Invoke re-extracts the lead from the whole conversation each turn, so no
// partial lead is stored between turns.
func (a *LeadCapture) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := validateRequest(req); err != nil {
		return contractx.AgentResult{}, err
	}

	input, err := modelInput(req, map[string]any{"required_fields": leadx.RequiredFields})
	if err != nil {
		return contractx.AgentResult{}, err
	}
	out, err := a.runner.Invoke(ctx, llmx.Input(input))
	if err != nil {
		return contractx.AgentResult{}, fmt.Errorf("%w: lead invoke: %v", contractx.ErrModelInvoke, err)
	}

	lead := leadx.Normalize(out.Lead)
	reply := strings.TrimSpace(out.Reply)

	if missing := leadx.Missing(lead); len(missing) > 0 {
		if reply == "" || out.Confirmed {
			reply = askForFields(missing)
		}
		return a.result(reply), nil
	}

	if !out.Confirmed {
		if reply == "" {
			reply = "Here's a summary of your details. Does everything look correct?"
		}
		return a.result(reply, envelopex.NewLeadCapture(lead)), nil
	}

	if a.sink != nil {
		if err := a.sink.Submit(ctx, lead); err != nil {
			return contractx.AgentResult{}, a.fail("submit lead: %v", err)
		}
	}
	log.Info().
		Str("vehicle_model", lead.VehicleModel).
		Str("zip_code", lead.ZipCode).
		Str("contact_preference", lead.ContactPreference).
		Msg("lead submitted")

	return a.result(leadClosingReply), nil
}

var fieldLabels = map[string]string{
	"first_name":         "first name",
	"last_name":          "last name",
	"zip_code":           "5-digit zip code",
	"email":              "email address",
	"contact_preference": "preferred contact method (Email or Telephone)",
	"vehicle_model":      "the Buick model you're interested in",
	"phone_number":       "phone number",
}

func askForFields(missing []string) string {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		if l, ok := fieldLabels[f]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, strings.ReplaceAll(f, "_", " "))
		}
	}
	switch len(labels) {
	case 1:
		return fmt.Sprintf("Could you share your %s?", labels[0])
	default:
		return fmt.Sprintf("To prepare your quote, could you share your %s and %s?",
			strings.Join(labels[:len(labels)-1], ", "), labels[len(labels)-1])
	}
}
