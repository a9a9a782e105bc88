package orchestratornode

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

// Ranker orders capabilities for merging. Lower ranks first.
type Ranker interface {
	Precedence(c contractx.Capability) int
}

// MergeEnvelope concatenates successful agent output in precedence order,
// never completion order.
func MergeEnvelope(in *GraphState, ranker Ranker) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if len(in.Decision.Capabilities) == 0 && strings.TrimSpace(in.Decision.DirectReply) != "" {
		in.Envelope = envelopex.New(in.Decision.DirectReply, nil)
		return in, nil
	}

	in.Envelope, in.Fallback = merge(in.Outcomes, ranker)
	return in, nil
}

func merge(outcomes []AgentOutcome, ranker Ranker) (envelopex.Envelope, bool) {
	ok := make([]AgentOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Failed() {
			ok = append(ok, o)
		}
	}
	if len(ok) == 0 {
		return envelopex.Fallback(), true
	}

	sort.SliceStable(ok, func(i, j int) bool {
		return ranker.Precedence(ok[i].Capability) < ranker.Precedence(ok[j].Capability)
	})

	var (
		texts []string
		items []envelopex.RichItem
	)
	for _, o := range ok {
		if t := strings.TrimSpace(o.Result.Text); t != "" {
			texts = append(texts, t)
		}
		items = append(items, o.Result.Items...)
	}
	return envelopex.New(strings.Join(texts, "\n\n"), items), false
}
