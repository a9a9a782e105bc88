package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	nodex "github.com/tanpawarit/vehicle-ai-concierge/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadContext(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_context: %w", err)
	}

	if err := graph.AddLambdaNode("route_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteIntent(ctx, in, o.router, o.agents)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_intent: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_agents",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchAgents(ctx, in, o.agents, nodex.DispatchConfig{
				AgentTimeout: o.cfg.AgentTimeout,
				MaxParallel:  o.cfg.MaxParallelAgents,
			})
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_agents: %w", err)
	}

	if err := graph.AddLambdaNode("merge_envelope",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MergeEnvelope(in, o.ranker)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node merge_envelope: %w", err)
	}

	if err := graph.AddLambdaNode("save_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveContext(ctx, in, o.store, o.cfg.HistoryLimit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_context: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_envelope",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeEnvelope(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_envelope: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_context"},
		{"load_context", "route_intent"},
		{"dispatch_agents", "merge_envelope"},
		{"merge_envelope", "save_context"},
		{"save_context", "finalize_envelope"},
		{"finalize_envelope", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	// A router that answered directly has nothing to dispatch.
	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if len(in.Decision.Capabilities) == 0 {
				return "merge_envelope", nil
			}
			return "dispatch_agents", nil
		},
		map[string]bool{
			"dispatch_agents": true,
			"merge_envelope":  true,
		},
	)
	if err := graph.AddBranch("route_intent", branch); err != nil {
		return nil, fmt.Errorf("add branch route_intent: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
