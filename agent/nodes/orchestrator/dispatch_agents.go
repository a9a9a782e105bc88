package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

type DispatchConfig struct {
	AgentTimeout time.Duration
	MaxParallel  int
}

// DispatchAgents runs the routed agents concurrently and waits for all of
// them. An agent still running at its deadline is abandoned and recorded as
// timed out.
func DispatchAgents(ctx context.Context, in *GraphState, registry contractx.Registry, cfg DispatchConfig) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}
	if len(in.Decision.Capabilities) == 0 {
		return in, nil
	}

	p := pool.NewWithResults[AgentOutcome]()
	if cfg.MaxParallel > 0 {
		p = p.WithMaxGoroutines(cfg.MaxParallel)
	}

	var missing []AgentOutcome
	for _, c := range in.Decision.Capabilities {
		agent, ok := registry.Agent(c)
		if !ok {
			missing = append(missing, AgentOutcome{
				Capability: c,
				Err:        fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, c),
			})
			continue
		}
		req := contractx.AgentRequest{
			Turn:    in.Turn,
			History: in.Conversation.History(),
		}
		p.Go(func() AgentOutcome {
			return invokeWithDeadline(ctx, agent, req, cfg.AgentTimeout)
		})
	}

	in.Outcomes = append(p.Wait(), missing...)
	for _, o := range in.Outcomes {
		ev := log.Info()
		if o.Err != nil {
			ev = log.Warn().Err(o.Err)
		}
		ev.Str("capability", string(o.Capability)).
			Dur("elapsed", o.Elapsed).
			Int("items", len(o.Result.Items)).
			Bool("failed", o.Failed()).
			Msg("agent finished")
	}
	return in, nil
}

func invokeWithDeadline(ctx context.Context, agent contractx.ToolAgent, req contractx.AgentRequest, timeout time.Duration) AgentOutcome {
	capability := agent.Capability()
	started := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan AgentOutcome, 1)
	go func() {
		out := AgentOutcome{Capability: capability}
		defer func() {
			if r := recover(); r != nil {
				out.Err = fmt.Errorf("%w: %s panicked: %v", contractx.ErrToolAgent, capability, r)
				out.Result = contractx.AgentResult{}
			}
			done <- out
		}()
		out.Result, out.Err = agent.Invoke(ctx, req)
	}()

	select {
	case out := <-done:
		out.Elapsed = time.Since(started)
		return out
	case <-ctx.Done():
		return AgentOutcome{
			Capability: capability,
			Err:        fmt.Errorf("%w: %s: %v", contractx.ErrToolAgent, capability, ctx.Err()),
			Elapsed:    time.Since(started),
		}
	}
}
