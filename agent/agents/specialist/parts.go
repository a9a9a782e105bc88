package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
	toolx "github.com/tanpawarit/vehicle-ai-concierge/agent/tool"
)

type PartsSearch struct {
	base
	toolRunner    compose.Runnable[map[string]any, *schema.Message]
	runtimeRunner compose.Runnable[contractx.AgentRequest, contractx.AgentResult]
	executor      toolx.Executor
	allowedTools  map[string]struct{}
}

var _ contractx.ToolAgent = (*PartsSearch)(nil)

func NewPartsSearch(ctx context.Context, chatModel einomodel.ToolCallingChatModel, systemPrompt string, executor toolx.Executor) (*PartsSearch, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: parts prompt", contractx.ErrPromptMissing)
	}

	tools := toolx.InfosFor(contractx.CapabilityPartsSearch)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind parts tools: %v", contractx.ErrModelInvoke, err)
	}
	toolRunner, err := llmx.CompileMessage(ctx, toolModel, systemPrompt, "parts_search.tool_planning_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile parts tool planning graph: %v", contractx.ErrModelInvoke, err)
	}

	allowed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t != nil && t.Name != "" {
			allowed[t.Name] = struct{}{}
		}
	}

	a := &PartsSearch{
		base: base{
			capability: contractx.CapabilityPartsSearch,
			produces:   []envelopex.Kind{envelopex.KindAccessory},
		},
		toolRunner:   toolRunner,
		executor:     executor,
		allowedTools: allowed,
	}

	runtimeRunner, err := compileToolRuntimeGraph(ctx, "parts_search", a.plan, a.runTools, a.ask)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	a.runtimeRunner = runtimeRunner
	return a, nil
}

func (a *PartsSearch) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := validateRequest(req); err != nil {
		return contractx.AgentResult{}, err
	}
	return a.runtimeRunner.Invoke(ctx, req)
}

func (a *PartsSearch) plan(ctx context.Context, req contractx.AgentRequest) (*toolPlan, error) {
	input, err := modelInput(req, nil)
	if err != nil {
		return nil, err
	}
	msg, err := a.toolRunner.Invoke(ctx, llmx.Input(input))
	if err != nil {
		return nil, fmt.Errorf("%w: parts tool planning invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty parts tool planning response", contractx.ErrSchemaViolation)
	}

	calls, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return nil, err
	}
	for _, c := range calls {
		if _, ok := a.allowedTools[c.Tool]; !ok {
			return nil, fmt.Errorf("%w: tool=%s is not allowed for %s", contractx.ErrSchemaViolation, c.Tool, a.capability)
		}
	}

	question := strings.TrimSpace(msg.Content)
	if len(calls) == 0 && question == "" {
		return nil, fmt.Errorf("%w: parts model returned neither tool calls nor a question", contractx.ErrSchemaViolation)
	}
	return &toolPlan{Req: req, Calls: calls, Question: question}, nil
}

func (a *PartsSearch) runTools(ctx context.Context, p *toolPlan) (contractx.AgentResult, error) {
	var (
		parts []envelopex.Accessory
		seen  = map[string]struct{}{}
	)
	for _, call := range p.Calls {
		out, err := a.executor(ctx, call.Tool, call.Args)
		if err != nil {
			return contractx.AgentResult{}, a.fail("%s: %v", call.Tool, err)
		}
		if out.Error != "" {
			return contractx.AgentResult{}, a.fail("%s: %s", call.Tool, out.Error)
		}
		res, ok := out.Result.(toolx.PartsSearchOutput)
		if !ok {
			return contractx.AgentResult{}, a.fail("unexpected %s result %T", call.Tool, out.Result)
		}
		for _, part := range res.Results {
			if _, dup := seen[part.ID]; dup {
				continue
			}
			seen[part.ID] = struct{}{}
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return a.result("I couldn't find any genuine parts or accessories matching that. Could you describe the part differently or tell me your model and year?"), nil
	}

	items := make([]envelopex.RichItem, 0, len(parts))
	for _, part := range parts {
		items = append(items, envelopex.NewAccessory(part))
	}
	return a.result(partsSummary(parts), items...), nil
}

func (a *PartsSearch) ask(_ context.Context, p *toolPlan) (contractx.AgentResult, error) {
	return a.result(p.Question), nil
}

func partsSummary(parts []envelopex.Accessory) string {
	top := parts[0]
	noun := "item"
	if len(parts) > 1 {
		noun = "items"
	}
	return fmt.Sprintf("I found %d matching %s. The top result is the %s (part #%s) at %s.",
		len(parts), noun, top.Name, top.PartNumber, top.Price)
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}
		reqs = append(reqs, contractx.ToolRequest{Tool: tool, Args: args})
	}
	return reqs, nil
}
