// Package router decides which tool agents answer a turn.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

const (
	SourceRule     = "rule"
	SourceModel    = "model"
	SourceKeywords = "keywords"
	SourceDefault  = "default"
)

// historyWindow bounds how many past exchanges the model sees.
const historyWindow = 6

type routerLLMOutput struct {
	Capabilities []string `json:"capabilities"`
	DirectReply  string   `json:"direct_reply"`
	Reason       string   `json:"reason"`
}

type Router struct {
	table  *Table
	runner compose.Runnable[map[string]any, routerLLMOutput]
}

var _ contractx.Router = (*Router)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, table *Table) (*Router, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router prompt", contractx.ErrPromptMissing)
	}
	runner, err := llmx.CompileStructured[routerLLMOutput](ctx, chatModel, systemPrompt, "router.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Router{table: table, runner: runner}, nil
}

// NewKeywordRouter routes with the table only.
func NewKeywordRouter(table *Table) *Router {
	return &Router{table: table}
}

func (r *Router) Table() *Table {
	return r.table
}

// Route never fails on model errors: it degrades to keyword matching and
// finally to the table default.
func (r *Router) Route(ctx context.Context, req contractx.RouteRequest) (contractx.RouteDecision, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	if r.table.IsImageEdit(message) {
		return contractx.RouteDecision{
			Capabilities: []contractx.Capability{contractx.CapabilityImageEdit},
			Source:       SourceRule,
		}, nil
	}

	if r.runner != nil {
		decision, err := r.routeWithModel(ctx, message, req.History)
		if err == nil {
			return decision, nil
		}
		log.Warn().Err(err).Msg("router model failed, using keyword routing")
	}

	return r.routeWithKeywords(message), nil
}

func (r *Router) routeWithModel(ctx context.Context, message string, history []statex.Exchange) (contractx.RouteDecision, error) {
	payload := map[string]any{
		"user_message": message,
		"history":      recentHistory(history, historyWindow),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: marshal router payload: %v", contractx.ErrValidation, err)
	}

	out, err := r.runner.Invoke(ctx, llmx.Input(string(input)))
	if err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err)
	}

	caps := make([]contractx.Capability, 0, len(out.Capabilities))
	for _, name := range out.Capabilities {
		c := contractx.Capability(strings.TrimSpace(strings.ToLower(name)))
		if _, ok := r.table.Lookup(c); !ok {
			log.Debug().Str("capability", name).Msg("router model chose unknown capability")
			continue
		}
		if c == contractx.CapabilityImageEdit {
			// Image edits are only reachable through the submission prefix.
			continue
		}
		caps = append(caps, c)
	}
	caps = r.table.Normalize(caps)

	reply := strings.TrimSpace(out.DirectReply)
	if len(caps) == 0 && reply == "" {
		if len(out.Capabilities) > 0 {
			return contractx.RouteDecision{}, fmt.Errorf("%w: no usable capability in %v", contractx.ErrSchemaViolation, out.Capabilities)
		}
		return r.defaultDecision(), nil
	}
	if len(caps) > 0 {
		reply = ""
	}

	log.Debug().
		Strs("capabilities", capabilityNames(caps)).
		Str("reason", out.Reason).
		Msg("router decision")

	return contractx.RouteDecision{
		Capabilities: caps,
		DirectReply:  reply,
		Source:       SourceModel,
	}, nil
}

func (r *Router) routeWithKeywords(message string) contractx.RouteDecision {
	caps := r.table.Normalize(r.table.MatchKeywords(message))
	if len(caps) == 0 {
		return r.defaultDecision()
	}
	return contractx.RouteDecision{Capabilities: caps, Source: SourceKeywords}
}

func (r *Router) defaultDecision() contractx.RouteDecision {
	return contractx.RouteDecision{
		Capabilities: []contractx.Capability{r.table.Default},
		Source:       SourceDefault,
	}
}

func recentHistory(history []statex.Exchange, n int) []map[string]string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]map[string]string, 0, len(history))
	for _, ex := range history {
		out = append(out, map[string]string{"user": ex.User, "assistant": ex.Assistant})
	}
	return out
}

func capabilityNames(caps []contractx.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
