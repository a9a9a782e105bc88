// Package envelope defines the wire format shared by the orchestrator and its
// clients: a text reply plus an ordered list of typed rich items.
package envelope

import (
	"encoding/json"
	"strings"
)

// FallbackText is shown when no usable reply could be produced.
const FallbackText = "Sorry, I encountered an issue."

type Envelope struct {
	Text        string     `json:"text"`
	RichContent []RichItem `json:"rich_content"`
}

// New builds an envelope with degenerate items dropped. RichContent is never nil.
func New(text string, items []RichItem) Envelope {
	kept := make([]RichItem, 0, len(items))
	for _, it := range items {
		if it.IsDegenerate() {
			continue
		}
		kept = append(kept, it)
	}
	return Envelope{Text: text, RichContent: kept}
}

// Fallback is the envelope returned when every agent failed.
func Fallback() Envelope {
	return New(FallbackText, nil)
}

func (e Envelope) HasRichContent() bool {
	for _, it := range e.RichContent {
		if !it.IsDegenerate() {
			return true
		}
	}
	return false
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	type wire Envelope
	w := wire(e)
	if w.RichContent == nil {
		w.RichContent = []RichItem{}
	}
	return json.Marshal(w)
}

// Sanitize replaces replies that are empty or look like raw JSON with the
// fallback text.
func (e Envelope) Sanitize() Envelope {
	if strings.TrimSpace(e.Text) == "" || LooksLikeRawJSON(e.Text) {
		e.Text = FallbackText
	}
	if e.RichContent == nil {
		e.RichContent = []RichItem{}
	}
	return e
}

// LooksLikeRawJSON reports whether text is a JSON object or array, optionally
// wrapped in a markdown code fence.
func LooksLikeRawJSON(text string) bool {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return false
	}
	if s[0] != '{' && s[0] != '[' {
		return false
	}
	return json.Valid([]byte(s))
}
