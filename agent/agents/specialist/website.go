package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
	vertexsearchx "github.com/tanpawarit/vehicle-ai-concierge/pkg/vertexsearch"
)

// Searcher is the website index the agent queries.
type Searcher interface {
	Search(ctx context.Context, query string) (vertexsearchx.Response, error)
}

type WebsiteSearch struct {
	base
	searcher Searcher
	rewriter compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.ToolAgent = (*WebsiteSearch)(nil)

// NewWebsiteSearch builds the agent. chatModel may be nil, in which case
// follow-up questions are searched verbatim.
func NewWebsiteSearch(ctx context.Context, searcher Searcher, chatModel einomodel.BaseChatModel, rewritePrompt string) (*WebsiteSearch, error) {
	a := &WebsiteSearch{
		base: base{
			capability: contractx.CapabilityWebsiteSearch,
			produces:   []envelopex.Kind{envelopex.KindSearchResult},
		},
		searcher: searcher,
	}
	if chatModel != nil {
		if strings.TrimSpace(rewritePrompt) == "" {
			return nil, fmt.Errorf("%w: search rewrite prompt", contractx.ErrPromptMissing)
		}
		runner, err := llmx.CompileMessage(ctx, chatModel, rewritePrompt, "website_search.rewrite_graph")
		if err != nil {
			return nil, fmt.Errorf("%w: compile rewrite graph: %v", contractx.ErrModelInvoke, err)
		}
		a.rewriter = runner
	}
	return a, nil
}

func (a *WebsiteSearch) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := validateRequest(req); err != nil {
		return contractx.AgentResult{}, err
	}

	query := a.rewrite(ctx, req)
	res, err := a.searcher.Search(ctx, query)
	if err != nil {
		return contractx.AgentResult{}, a.fail("search %q: %v", query, err)
	}

	items := make([]envelopex.RichItem, 0, len(res.Results))
	for _, r := range res.Results {
		items = append(items, envelopex.NewSearchResult(envelopex.SearchResult{
			Title:    r.Title,
			Link:     r.Link,
			Snippets: r.Snippets,
			Image:    r.Image,
		}))
	}
	if len(items) == 0 && res.Summary == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: website search for %q", contractx.ErrNoResult, query)
	}

	text := res.Summary
	if text == "" {
		text = fmt.Sprintf("Here's what I found on the Buick website about %s.", query)
	}
	return a.result(text, items...), nil
}

// rewrite turns follow-ups into standalone queries. Failures fall back to the
// original message.
func (a *WebsiteSearch) rewrite(ctx context.Context, req contractx.AgentRequest) string {
	message := strings.TrimSpace(req.Turn.Message)
	if a.rewriter == nil || len(req.History) == 0 {
		return message
	}

	input, err := modelInput(req, nil)
	if err != nil {
		return message
	}
	msg, err := a.rewriter.Invoke(ctx, llmx.Input(input))
	if err != nil || msg == nil {
		log.Warn().Err(err).Msg("search query rewrite failed")
		return message
	}

	rewritten := strings.Trim(strings.TrimSpace(msg.Content), `"`)
	if rewritten == "" || strings.Contains(rewritten, "\n") {
		return message
	}
	log.Debug().Str("original", message).Str("rewritten", rewritten).Msg("search query rewritten")
	return rewritten
}
