// Package resolver turns a received envelope into renderable sections.
package resolver

import (
	"github.com/rs/zerolog/log"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

// Section is a run of consecutive items of one kind.
type Section struct {
	Kind  envelopex.Kind
	Items []envelopex.RichItem
	// Gallery is set on search sections where any result carries an image.
	Gallery bool
}

type Batch struct {
	Text     string
	Sections []Section
	// Dropped counts items that could not be classified.
	Dropped int
}

// TextOnly reports whether nothing structured is left to render.
func (b Batch) TextOnly() bool {
	return len(b.Sections) == 0
}

// Items returns every resolved item in order.
func (b Batch) Items() []envelopex.RichItem {
	var out []envelopex.RichItem
	for _, s := range b.Sections {
		out = append(out, s.Items...)
	}
	return out
}

// Resolve classifies each item on its own. Degenerate items are skipped,
// malformed and ambiguous ones dropped and counted.
func Resolve(env envelopex.Envelope) Batch {
	b := Batch{Text: env.Text}
	for _, it := range env.RichContent {
		if _, err := it.Fields(); err != nil {
			log.Debug().Err(err).Msg("dropping malformed rich item")
			b.Dropped++
			continue
		}
		if it.IsDegenerate() {
			continue
		}
		resolved, ok := resolve(it)
		if !ok {
			b.Dropped++
			continue
		}
		b.add(resolved)
	}
	return b
}

func resolve(it envelopex.RichItem) (envelopex.RichItem, bool) {
	kind, err := envelopex.Classify(it)
	if err != nil {
		log.Debug().Err(err).Msg("dropping ambiguous rich item")
		return envelopex.RichItem{}, false
	}
	resolved, err := it.As(kind)
	if err != nil {
		log.Debug().Err(err).Str("kind", string(kind)).Msg("dropping undecodable rich item")
		return envelopex.RichItem{}, false
	}
	return resolved, true
}

func (b *Batch) add(it envelopex.RichItem) {
	n := len(b.Sections)
	if n == 0 || b.Sections[n-1].Kind != it.Kind {
		b.Sections = append(b.Sections, Section{Kind: it.Kind})
		n++
	}
	s := &b.Sections[n-1]
	s.Items = append(s.Items, it)
	if it.Kind == envelopex.KindSearchResult && it.SearchResult.ImageRef() != "" {
		s.Gallery = true
	}
}
