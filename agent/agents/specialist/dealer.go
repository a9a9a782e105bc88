package specialist

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	toolx "github.com/tanpawarit/vehicle-ai-concierge/agent/tool"
)

var zipPattern = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

const askZipQuestion = "I can find the closest Buick dealerships for you. What's your 5-digit zip code?"

type DealerSearch struct {
	base
	executor      toolx.Executor
	runtimeRunner compose.Runnable[contractx.AgentRequest, contractx.AgentResult]
}

var _ contractx.ToolAgent = (*DealerSearch)(nil)

func NewDealerSearch(ctx context.Context, executor toolx.Executor) (*DealerSearch, error) {
	a := &DealerSearch{
		base: base{
			capability: contractx.CapabilityDealerSearch,
			produces:   []envelopex.Kind{envelopex.KindDealer},
		},
		executor: executor,
	}
	runner, err := compileToolRuntimeGraph(ctx, "dealer_search", a.plan, a.runTools, a.ask)
	if err != nil {
		return nil, err
	}
	a.runtimeRunner = runner
	return a, nil
}

func (a *DealerSearch) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := validateRequest(req); err != nil {
		return contractx.AgentResult{}, err
	}
	return a.runtimeRunner.Invoke(ctx, req)
}

// ExtractZip returns the first 5-digit zip in the message, then in the
// customer's earlier messages, newest first.
func ExtractZip(req contractx.AgentRequest) (string, bool) {
	if m := zipPattern.FindStringSubmatch(req.Turn.Message); m != nil {
		return m[1], true
	}
	for i := len(req.History) - 1; i >= 0; i-- {
		if m := zipPattern.FindStringSubmatch(req.History[i].User); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (a *DealerSearch) plan(_ context.Context, req contractx.AgentRequest) (*toolPlan, error) {
	zip, ok := ExtractZip(req)
	if !ok {
		return &toolPlan{Req: req, Question: askZipQuestion}, nil
	}
	return &toolPlan{
		Req: req,
		Calls: []contractx.ToolRequest{{
			Tool: toolx.ToolDealersFind,
			Args: map[string]any{"zip_code": zip},
		}},
	}, nil
}

func (a *DealerSearch) runTools(ctx context.Context, p *toolPlan) (contractx.AgentResult, error) {
	call := p.Calls[0]
	out, err := a.executor(ctx, call.Tool, call.Args)
	if err != nil {
		return contractx.AgentResult{}, a.fail("%s: %v", call.Tool, err)
	}
	if out.Error != "" {
		return contractx.AgentResult{}, a.fail("%s: %s", call.Tool, out.Error)
	}
	res, ok := out.Result.(toolx.DealersFindOutput)
	if !ok {
		return contractx.AgentResult{}, a.fail("unexpected %s result %T", call.Tool, out.Result)
	}
	if len(res.Dealerships) == 0 {
		text := res.Message
		if text == "" {
			text = "I couldn't find any Buick dealerships near that zip code."
		}
		return a.result(text), nil
	}

	items := make([]envelopex.RichItem, 0, len(res.Dealerships))
	for _, d := range res.Dealerships {
		items = append(items, envelopex.NewDealer(d))
	}
	return a.result(dealerSummary(res.Dealerships[0]), items...), nil
}

func (a *DealerSearch) ask(_ context.Context, p *toolPlan) (contractx.AgentResult, error) {
	return a.result(p.Question), nil
}

func dealerSummary(closest envelopex.Dealer) string {
	if closest.DistanceMiles == nil {
		return fmt.Sprintf("The closest dealership is %s at %s.", closest.Name, closest.Address)
	}
	return fmt.Sprintf("The closest dealership is %s, about %.1f miles away at %s.", closest.Name, *closest.DistanceMiles, closest.Address)
}
