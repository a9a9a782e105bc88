package specialist

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

// toolPlan is the state passed between nodes of a tool agent's runtime graph.
type toolPlan struct {
	Req      contractx.AgentRequest
	Calls    []contractx.ToolRequest
	Question string
}

// compileToolRuntimeGraph wires plan -> (run_tools | ask_customer). The branch
// takes run_tools whenever the planner produced tool calls.
func compileToolRuntimeGraph(
	ctx context.Context,
	name string,
	plan func(context.Context, contractx.AgentRequest) (*toolPlan, error),
	runTools func(context.Context, *toolPlan) (contractx.AgentResult, error),
	ask func(context.Context, *toolPlan) (contractx.AgentResult, error),
) (compose.Runnable[contractx.AgentRequest, contractx.AgentResult], error) {
	graph := compose.NewGraph[contractx.AgentRequest, contractx.AgentResult]()

	if err := graph.AddLambdaNode("plan", compose.InvokableLambda(plan)); err != nil {
		return nil, fmt.Errorf("add %s plan node: %w", name, err)
	}
	if err := graph.AddLambdaNode("run_tools", compose.InvokableLambda(runTools)); err != nil {
		return nil, fmt.Errorf("add %s run_tools node: %w", name, err)
	}
	if err := graph.AddLambdaNode("ask_customer", compose.InvokableLambda(ask)); err != nil {
		return nil, fmt.Errorf("add %s ask_customer node: %w", name, err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *toolPlan) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: %s plan is nil", contractx.ErrValidation, name)
			}
			if len(in.Calls) > 0 {
				return "run_tools", nil
			}
			return "ask_customer", nil
		},
		map[string]bool{
			"run_tools":    true,
			"ask_customer": true,
		},
	)

	if err := graph.AddEdge(compose.START, "plan"); err != nil {
		return nil, fmt.Errorf("add %s edge start->plan: %w", name, err)
	}
	if err := graph.AddBranch("plan", branch); err != nil {
		return nil, fmt.Errorf("add %s branch: %w", name, err)
	}
	if err := graph.AddEdge("run_tools", compose.END); err != nil {
		return nil, fmt.Errorf("add %s edge run_tools->end: %w", name, err)
	}
	if err := graph.AddEdge("ask_customer", compose.END); err != nil {
		return nil, fmt.Errorf("add %s edge ask_customer->end: %w", name, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(name+".runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile %s runtime graph: %w", name, err)
	}
	return runner, nil
}
