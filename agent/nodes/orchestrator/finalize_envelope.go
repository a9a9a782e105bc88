package orchestratornode

import (
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const Greeting = "Hello and welcome to Buick! I'm your virtual concierge."

var greetingWords = []string{"hi", "hello", "hey", "welcome", "good morning", "good afternoon", "good evening"}

// FinalizeEnvelope guards the reply text and greets the customer on the first
// turn of a session.
func FinalizeEnvelope(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	env := in.Envelope.Sanitize()
	if in.FirstTurn && !in.Fallback && env.Text != envelopex.FallbackText && !startsWithGreeting(env.Text) {
		env.Text = Greeting + " " + env.Text
	}
	return GraphOutput{Envelope: env}, nil
}

func startsWithGreeting(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range greetingWords {
		if !strings.HasPrefix(lower, w) {
			continue
		}
		rest := []rune(lower[len(w):])
		if len(rest) == 0 || !unicode.IsLetter(rest[0]) {
			return true
		}
	}
	return false
}
