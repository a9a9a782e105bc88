package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrClassificationAmbiguity = errors.New("rich item classification ambiguous")

// requirement is satisfied when any of its alternative fields is populated.
type requirement []string

var shapes = map[Kind][]requirement{
	KindEditedImage: {{"image_url"}},
	KindLeadCapture: {{"first_name"}, {"last_name"}, {"vehicle_model"}, {"email"}, {"zip_code"}, {"contact_preference"}},
	KindDealer:      {{"id"}, {"name"}, {"address"}, {"phone"}, {"hours"}, {"inventory"}},
	KindAccessory:   {{"id"}, {"name"}, {"price"}, {"description"}, {"part_number"}, {"compatibility"}},
	KindSearchResult: {
		{"title"},
		{"link", "pageUrl"},
		{"snippet", "snippets"},
	},
}

// Zero is a real value for these fields, so any number counts as present.
var numericFields = map[string]bool{
	"price": true,
	"count": true,
}

// Matches reports whether the field map satisfies the required-field set of kind.
func Matches(kind Kind, fields map[string]json.RawMessage) bool {
	reqs, ok := shapes[kind]
	if !ok {
		return false
	}
	for _, req := range reqs {
		if !anyPopulated(fields, req) {
			return false
		}
	}
	return true
}

// ClassifyFields runs the structural predicates in priority order. Exactly one
// kind must match. On several matches the highest-priority kind is returned
// together with ErrClassificationAmbiguity.
func ClassifyFields(fields map[string]json.RawMessage) (Kind, error) {
	var matched []Kind
	for _, kind := range Kinds {
		if Matches(kind, fields) {
			matched = append(matched, kind)
		}
	}

	switch len(matched) {
	case 0:
		return "", fmt.Errorf("%w: no variant matches fields %s", ErrClassificationAmbiguity, fieldNames(fields))
	case 1:
		return matched[0], nil
	default:
		return matched[0], fmt.Errorf("%w: fields match %v", ErrClassificationAmbiguity, matched)
	}
}

// Classify returns the kind of an item: its tag when tagged, the structural
// match otherwise.
func Classify(it RichItem) (Kind, error) {
	if it.Tagged() {
		return it.Kind, nil
	}
	fields, err := it.Fields()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassificationAmbiguity, err)
	}
	return ClassifyFields(fields)
}

func anyPopulated(fields map[string]json.RawMessage, names []string) bool {
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if populated(v) || (numericFields[name] && isNumber(v)) {
			return true
		}
	}
	return false
}

// isNumber accepts plain and quoted numbers, the forms Price decodes.
func isNumber(v json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(v)), `"`)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func fieldNames(fields map[string]json.RawMessage) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ",")
}
