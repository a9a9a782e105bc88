package router

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
)

//go:embed routing.yaml
var routingRaw []byte

type Entry struct {
	Capability     contractx.Capability `yaml:"capability"`
	Precedence     int                  `yaml:"precedence"`
	ExclusiveGroup string               `yaml:"exclusive_group"`
	Sole           bool                 `yaml:"sole"`
	Keywords       []string             `yaml:"keywords"`
}

// Table is the capability routing table. Entries are kept sorted by precedence.
type Table struct {
	Default         contractx.Capability `yaml:"default"`
	ImageEditPrefix string               `yaml:"image_edit_prefix"`
	Entries         []Entry              `yaml:"capabilities"`

	byCapability map[contractx.Capability]Entry
}

func LoadTable() (*Table, error) {
	return ParseTable(routingRaw)
}

func ParseTable(raw []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: parse routing table: %v", contractx.ErrValidation, err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) index() error {
	t.byCapability = make(map[contractx.Capability]Entry, len(t.Entries))
	seenPrecedence := make(map[int]contractx.Capability, len(t.Entries))

	for _, e := range t.Entries {
		if e.Capability == "" {
			return fmt.Errorf("%w: routing entry without capability", contractx.ErrValidation)
		}
		if _, dup := t.byCapability[e.Capability]; dup {
			return fmt.Errorf("%w: duplicate capability %s", contractx.ErrValidation, e.Capability)
		}
		if other, dup := seenPrecedence[e.Precedence]; dup {
			return fmt.Errorf("%w: %s and %s share precedence %d", contractx.ErrValidation, other, e.Capability, e.Precedence)
		}
		seenPrecedence[e.Precedence] = e.Capability
		t.byCapability[e.Capability] = e
	}
	if _, ok := t.byCapability[t.Default]; !ok {
		return fmt.Errorf("%w: default capability %q is not in the table", contractx.ErrValidation, t.Default)
	}

	sort.SliceStable(t.Entries, func(i, j int) bool {
		return t.Entries[i].Precedence < t.Entries[j].Precedence
	})
	return nil
}

func (t *Table) Lookup(c contractx.Capability) (Entry, bool) {
	e, ok := t.byCapability[c]
	return e, ok
}

// Precedence returns the merge rank of c. Unknown capabilities sort last.
func (t *Table) Precedence(c contractx.Capability) int {
	if e, ok := t.byCapability[c]; ok {
		return e.Precedence
	}
	return int(^uint(0) >> 1)
}

// Normalize drops unknown and duplicate capabilities, applies sole and
// exclusive-group rules and returns the survivors in precedence order.
func (t *Table) Normalize(caps []contractx.Capability) []contractx.Capability {
	winners := make(map[string]Entry, len(caps))
	var sole *Entry

	for _, c := range caps {
		e, ok := t.byCapability[c]
		if !ok {
			continue
		}
		if e.Sole && (sole == nil || e.Precedence < sole.Precedence) {
			entry := e
			sole = &entry
		}
		group := e.ExclusiveGroup
		if group == "" {
			group = string(e.Capability)
		}
		if cur, ok := winners[group]; !ok || e.Precedence < cur.Precedence {
			winners[group] = e
		}
	}

	if sole != nil {
		return []contractx.Capability{sole.Capability}
	}

	out := make([]contractx.Capability, 0, len(winners))
	for _, e := range winners {
		out = append(out, e.Capability)
	}
	sort.Slice(out, func(i, j int) bool {
		return t.Precedence(out[i]) < t.Precedence(out[j])
	})
	return out
}

// MatchKeywords selects capabilities whose keywords occur in message.
func (t *Table) MatchKeywords(message string) []contractx.Capability {
	lower := strings.ToLower(message)
	var out []contractx.Capability
	for _, e := range t.Entries {
		for _, kw := range e.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, e.Capability)
				break
			}
		}
	}
	return out
}

func (t *Table) IsImageEdit(message string) bool {
	return t.ImageEditPrefix != "" && strings.HasPrefix(strings.TrimSpace(message), t.ImageEditPrefix)
}
