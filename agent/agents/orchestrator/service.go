// Package orchestrator answers one user turn by routing it to tool agents and
// merging their output into a single envelope.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	nodex "github.com/tanpawarit/vehicle-ai-concierge/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidUser    = nodex.ErrInvalidUser
)

type Config struct {
	AgentTimeout      time.Duration `envconfig:"AGENT_TIMEOUT" default:"25s"`
	TurnTimeout       time.Duration `envconfig:"TURN_TIMEOUT" default:"45s"`
	HistoryLimit      int           `envconfig:"HISTORY_LIMIT" default:"20"`
	MaxParallelAgents int           `envconfig:"MAX_PARALLEL_AGENTS" default:"5"`
}

type Orchestrator struct {
	store  statex.Store
	router contractx.Router
	agents contractx.Registry
	ranker nodex.Ranker
	cfg    Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	router contractx.Router,
	agents contractx.Registry,
	ranker nodex.Ranker,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if ranker == nil {
		return nil, errors.New("capability ranker is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = statex.DefaultHistoryLimit
	}

	o := &Orchestrator{
		store:  store,
		router: router,
		agents: agents,
		ranker: ranker,
		cfg:    cfg,
		now:    time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn returns ErrValidation for unusable input. Every other failure
// is logged and answered with the fallback envelope.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn contractx.ChatTurn) (envelopex.Envelope, error) {
	if o.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
		defer cancel()
	}

	started := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Turn: turn})
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			return envelopex.Envelope{}, err
		}
		log.Error().Err(err).Str("user_id", turn.UserID).Msg("turn failed, returning fallback")
		return envelopex.Fallback(), nil
	}

	log.Info().
		Str("user_id", turn.UserID).
		Int("items", len(out.Envelope.RichContent)).
		Dur("elapsed", o.now().Sub(started)).
		Msg("turn handled")
	return out.Envelope, nil
}

// Reset forgets the conversation of a user.
func (o *Orchestrator) Reset(ctx context.Context, userID string) error {
	return o.store.Delete(ctx, statex.SessionIDFor(userID))
}

// History returns the stored exchanges of a user, or nil when none exist.
func (o *Orchestrator) History(ctx context.Context, userID string) ([]statex.Exchange, error) {
	conv, err := o.store.Load(ctx, statex.SessionIDFor(userID))
	if errors.Is(err, statex.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.History(), nil
}
