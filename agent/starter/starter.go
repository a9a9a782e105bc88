// Package starter suggests conversation starters shown before the first
// message of a visit.
package starter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

const maxStarters = 3

// Defaults are offered to visitors without history.
var Defaults = []string{
	"Compare the Enclave and the Envision",
	"What are the latest offers on the Encore GX?",
	"Schedule a test drive",
}

// Fallbacks are offered to returning visitors when generation fails.
var Fallbacks = []string{
	"How does the warranty compare to competitors?",
	"What financing options are available?",
	"Tell me more about the safety features.",
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+`)

var ErrEmptyCompletion = errors.New("starter completion is empty")

type HistoryReader interface {
	History(ctx context.Context, userID string) ([]statex.Exchange, error)
}

type Generator struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	prompt      string
	history     HistoryReader
}

// NewGenerator returns a generator. A nil client always yields defaults or
// fallbacks.
func NewGenerator(client *openaisdk.Client, model string, temperature float64, prompt string, history HistoryReader) *Generator {
	return &Generator{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: temperature,
		prompt:      strings.TrimSpace(prompt),
		history:     history,
	}
}

// Starters never fails: errors degrade to the static lists.
func (g *Generator) Starters(ctx context.Context, userID string) []string {
	history, err := g.history.History(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("load history for starters failed")
		return clone(Defaults)
	}
	if len(history) == 0 {
		return clone(Defaults)
	}
	if g.client == nil || g.model == "" {
		return clone(Fallbacks)
	}

	out, err := g.generate(ctx, history)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("generate starters failed")
		return clone(Fallbacks)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, history []statex.Exchange) ([]string, error) {
	questions := make([]string, 0, len(history))
	for _, ex := range history {
		if q := strings.TrimSpace(ex.User); q != "" {
			questions = append(questions, q)
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(g.prompt),
			openaisdk.UserMessage("Recent questions: " + strings.Join(questions, " | ")),
		},
		Temperature: openaisdk.Float(g.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	starters := Parse(resp.Choices[0].Message.Content)
	if len(starters) == 0 {
		return nil, ErrEmptyCompletion
	}
	return starters, nil
}

// Parse reads a JSON array of strings, falling back to one prompt per line.
func Parse(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(strings.TrimSuffix(s, "```"))

	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		list = strings.Split(s, "\n")
	}

	out := make([]string, 0, maxStarters)
	for _, item := range list {
		item = listMarker.ReplaceAllString(item, "")
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), `"`))
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxStarters {
			break
		}
	}
	return out
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
