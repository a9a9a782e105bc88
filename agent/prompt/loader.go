package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/search_rewrite.txt
	searchRewriteRaw string

	//go:embed template/parts.txt
	partsRaw string

	//go:embed template/lead.txt
	leadRaw string

	//go:embed template/starters.txt
	startersRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router        string
	SearchRewrite string
	Parts         string
	Lead          string
	Starters      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:        strings.TrimSpace(routerRaw),
		SearchRewrite: strings.TrimSpace(searchRewriteRaw),
		Parts:         strings.TrimSpace(partsRaw),
		Lead:          strings.TrimSpace(leadRaw),
		Starters:      strings.TrimSpace(startersRaw),
	}
}

// Missing lists the names of empty prompts.
func (p PromptSet) Missing() []string {
	var out []string
	for name, v := range map[string]string{
		"router":         p.Router,
		"search_rewrite": p.SearchRewrite,
		"parts":          p.Parts,
		"lead":           p.Lead,
		"starters":       p.Starters,
	} {
		if v == "" {
			out = append(out, name)
		}
	}
	return out
}

func (p PromptSet) Validate() error {
	if missing := p.Missing(); len(missing) > 0 {
		return fmt.Errorf("prompts missing: %s", strings.Join(missing, ","))
	}
	return nil
}
