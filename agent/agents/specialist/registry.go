package specialist

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
	promptx "github.com/tanpawarit/vehicle-ai-concierge/agent/prompt"
	toolx "github.com/tanpawarit/vehicle-ai-concierge/agent/tool"
)

type Registry struct {
	agents map[contractx.Capability]contractx.ToolAgent
}

var _ contractx.Registry = (*Registry)(nil)

func NewRegistry(agents ...contractx.ToolAgent) (*Registry, error) {
	r := &Registry{agents: make(map[contractx.Capability]contractx.ToolAgent, len(agents))}
	for _, a := range agents {
		if a == nil {
			continue
		}
		c := a.Capability()
		if _, dup := r.agents[c]; dup {
			return nil, fmt.Errorf("%w: duplicate agent for %s", contractx.ErrValidation, c)
		}
		r.agents[c] = a
	}
	return r, nil
}

func (r *Registry) Agent(c contractx.Capability) (contractx.ToolAgent, bool) {
	a, ok := r.agents[c]
	return a, ok
}

func (r *Registry) Capabilities() []contractx.Capability {
	out := make([]contractx.Capability, 0, len(r.agents))
	for c := range r.agents {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deps are the backends the tool agents run on. Nil Searcher, Editor or
// Uploader leave the matching agent unregistered.
type Deps struct {
	LLM      llmx.Config
	Prompts  promptx.PromptSet
	Executor toolx.Executor
	Searcher Searcher
	Editor   ImageEditor
	Uploader ObjectUploader
	LeadSink contractx.LeadSink
	HTTP     *http.Client
}

// Build constructs every agent whose backend is available.
func Build(ctx context.Context, deps Deps) (*Registry, error) {
	if err := deps.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Prompts.Validate(); err != nil {
		return nil, err
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("%w: catalog executor is required", contractx.ErrValidation)
	}

	partsCfg := deps.LLM.OpenRouterFor(llmx.RoleParts)
	partsModel, err := partsCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create parts model: %v", contractx.ErrModelInvoke, err)
	}
	leadCfg := deps.LLM.OpenRouterFor(llmx.RoleLead)
	leadModel, err := leadCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create lead model: %v", contractx.ErrModelInvoke, err)
	}

	agents := make([]contractx.ToolAgent, 0, 5)

	parts, err := NewPartsSearch(ctx, partsModel, deps.Prompts.Parts, deps.Executor)
	if err != nil {
		return nil, err
	}
	dealers, err := NewDealerSearch(ctx, deps.Executor)
	if err != nil {
		return nil, err
	}
	lead, err := NewLeadCapture(ctx, leadModel, deps.Prompts.Lead, deps.LeadSink)
	if err != nil {
		return nil, err
	}
	agents = append(agents, parts, dealers, lead)

	if deps.Searcher != nil {
		rewriteCfg := deps.LLM.OpenRouterFor(llmx.RoleSearchRewrite)
		rewriteModel, err := rewriteCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create search rewrite model: %v", contractx.ErrModelInvoke, err)
		}
		website, err := NewWebsiteSearch(ctx, deps.Searcher, rewriteModel, deps.Prompts.SearchRewrite)
		if err != nil {
			return nil, err
		}
		agents = append(agents, website)
	}
	if deps.Editor != nil && deps.Uploader != nil {
		agents = append(agents, NewImageEdit(deps.Editor, deps.Uploader, deps.HTTP))
	}

	return NewRegistry(agents...)
}
