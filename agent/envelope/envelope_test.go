package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewDropsDegenerateItems(t *testing.T) {
	t.Parallel()

	env := New("hello", []RichItem{
		NewSearchResult(SearchResult{}),
		NewDealer(Dealer{Name: "Buick of Beverly Hills", Address: "1 Main St"}),
		Untagged(json.RawMessage(`{"title":"","snippet":null}`)),
	})
	if len(env.RichContent) != 1 {
		t.Fatalf("expected 1 item, got %d", len(env.RichContent))
	}
	if env.RichContent[0].Kind != KindDealer {
		t.Fatalf("unexpected kind: %s", env.RichContent[0].Kind)
	}
}

func TestOnlyDegenerateItemsMeansNoRichContent(t *testing.T) {
	t.Parallel()

	env := Envelope{Text: "x", RichContent: []RichItem{NewEditedImage(EditedImage{})}}
	if env.HasRichContent() {
		t.Fatal("expected degenerate-only envelope to have no rich content")
	}
}

func TestEnvelopeMarshalNeverNullRichContent(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Envelope{Text: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"rich_content":[]`) {
		t.Fatalf("expected empty array, got %s", raw)
	}
}

func TestRichItemCarriesKindOnWire(t *testing.T) {
	t.Parallel()

	item := NewAccessory(Accessory{
		ID:         "acc-1",
		Name:       "All-Weather Floor Liners",
		Price:      189.5,
		PartNumber: "84722341",
		Compatibility: []Compatibility{
			{Model: "Enclave", Years: []int{2024, 2025}},
		},
	})
	raw, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"kind":"accessory"`) {
		t.Fatalf("missing kind tag: %s", raw)
	}
	if !strings.Contains(string(raw), `"price":189.50`) {
		t.Fatalf("expected two-digit price: %s", raw)
	}

	var decoded RichItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != KindAccessory || decoded.Accessory == nil {
		t.Fatalf("unexpected decoded item: %+v", decoded)
	}
	if decoded.Accessory.Compatibility[0].Years[1] != 2025 {
		t.Fatalf("unexpected compatibility: %+v", decoded.Accessory.Compatibility)
	}
}

func TestUnmarshalUntaggedKeepsFields(t *testing.T) {
	t.Parallel()

	var item RichItem
	if err := json.Unmarshal([]byte(`{"image_url":"https://cdn/x.png"}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Tagged() {
		t.Fatal("expected untagged item")
	}
	kind, err := Classify(item)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != KindEditedImage {
		t.Fatalf("unexpected kind: %s", kind)
	}
	resolved, err := item.As(kind)
	if err != nil {
		t.Fatalf("as: %v", err)
	}
	if resolved.EditedImage.ImageURL != "https://cdn/x.png" {
		t.Fatalf("unexpected url: %s", resolved.EditedImage.ImageURL)
	}
}

func TestUnmarshalUnknownKindStaysUnresolved(t *testing.T) {
	t.Parallel()

	var item RichItem
	if err := json.Unmarshal([]byte(`{"kind":"video","url":"x"}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Tagged() {
		t.Fatal("unknown kind must not be tagged")
	}
	if _, err := Classify(item); !errors.Is(err, ErrClassificationAmbiguity) {
		t.Fatalf("expected ambiguity, got %v", err)
	}
}

func TestUnmarshalKeepsEnvelopeWhenItemMalformed(t *testing.T) {
	t.Parallel()

	raw := `{"text":"Here are dealers near 90210.","rich_content":[` +
		`{"kind":"dealer","id":"d1","name":"Buick of Beverly Hills","hours":"9-5"},` +
		`"oops",` +
		`{"kind":"accessory","id":"a1","name":"Floor Liners","price":189.99}]}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Text != "Here are dealers near 90210." {
		t.Fatalf("text lost: %q", env.Text)
	}
	if len(env.RichContent) != 3 {
		t.Fatalf("expected 3 items, got %d", len(env.RichContent))
	}

	bad := env.RichContent[0]
	if bad.Tagged() || bad.Kind != KindDealer {
		t.Fatalf("malformed dealer should stay unresolved, got %+v", bad)
	}
	if _, err := bad.As(KindDealer); err == nil {
		t.Fatal("malformed dealer must not decode")
	}
	if !env.RichContent[1].IsDegenerate() {
		t.Fatal("non-object element should be degenerate")
	}
	if acc := env.RichContent[2]; !acc.Tagged() || acc.Accessory.Name != "Floor Liners" {
		t.Fatalf("valid item lost: %+v", acc)
	}

	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !strings.Contains(string(out), `"hours":"9-5"`) {
		t.Fatalf("unresolved item should go back out as received: %s", out)
	}
}

func TestZeroValuesSurviveRoundTrip(t *testing.T) {
	t.Parallel()

	raw := `{"text":"t","rich_content":[` +
		`{"kind":"dealer","id":"d1","name":"N","inventory":[{"model":"Enclave","trim":"Avenir","count":0}]},` +
		`{"kind":"accessory","id":"a1","name":"Valet Key Fob Cover","price":0}]}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`{"model":"Enclave","trim":"Avenir","count":0}`, `"price":0.00`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}

	if !NewAccessory(Accessory{}).IsDegenerate() {
		t.Fatal("an accessory with only a zero price is still degenerate")
	}
}

func TestClassifyFreeAccessory(t *testing.T) {
	t.Parallel()

	for _, price := range []string{`0`, `"0.00"`} {
		raw := `{"id":"a1","name":"Valet Key Fob Cover","price":` + price +
			`,"description":"D","part_number":"P","compatibility":[{"model":"Envista","years":[2025]}]}`
		kind, err := Classify(Untagged(json.RawMessage(raw)))
		if err != nil {
			t.Fatalf("price %s: classify: %v", price, err)
		}
		if kind != KindAccessory {
			t.Fatalf("price %s: expected accessory, got %s", price, kind)
		}
	}

	missing := `{"id":"a1","name":"N","price":null,"description":"D","part_number":"P","compatibility":[{"model":"Envista"}]}`
	if _, err := Classify(Untagged(json.RawMessage(missing))); !errors.Is(err, ErrClassificationAmbiguity) {
		t.Fatalf("null price must not satisfy the accessory shape, got %v", err)
	}
}

func TestClassifyFieldsExclusive(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want Kind
	}{
		{name: "search link", raw: `{"title":"Enclave","link":"https://a","snippet":"s"}`, want: KindSearchResult},
		{name: "search pageUrl", raw: `{"title":"Enclave","pageUrl":"https://a","snippets":["s"]}`, want: KindSearchResult},
		{name: "dealer", raw: `{"id":"d1","name":"N","address":"A","phone":"P","hours":{"Mon":"9-5"},"inventory":[{"model":"Encore GX","trim":"Sport Touring","count":3}]}`, want: KindDealer},
		{name: "accessory", raw: `{"id":"a1","name":"N","price":10,"description":"D","part_number":"P","compatibility":[{"model":"Envista","years":[2025]}]}`, want: KindAccessory},
		{name: "lead", raw: `{"first_name":"A","last_name":"B","vehicle_model":"Enclave","email":"a@b.c","zip_code":"90210","contact_preference":"Email"}`, want: KindLeadCapture},
		{name: "image", raw: `{"image_url":"https://x"}`, want: KindEditedImage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tc.raw), &fields); err != nil {
				t.Fatalf("fixture: %v", err)
			}
			got, err := ClassifyFields(fields)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			matches := 0
			for _, k := range Kinds {
				if Matches(k, fields) {
					matches++
				}
			}
			if matches != 1 {
				t.Fatalf("expected exactly one predicate to match, got %d", matches)
			}
		})
	}
}

func TestClassifyFieldsAmbiguous(t *testing.T) {
	t.Parallel()

	var none map[string]json.RawMessage
	if _, err := ClassifyFields(none); !errors.Is(err, ErrClassificationAmbiguity) {
		t.Fatalf("expected ambiguity for empty fields, got %v", err)
	}

	var both map[string]json.RawMessage
	raw := `{"image_url":"https://x","title":"t","link":"https://l","snippet":"s"}`
	if err := json.Unmarshal([]byte(raw), &both); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	kind, err := ClassifyFields(both)
	if !errors.Is(err, ErrClassificationAmbiguity) {
		t.Fatalf("expected ambiguity for overlapping fields, got %v", err)
	}
	if kind != KindEditedImage {
		t.Fatalf("expected highest-priority kind, got %s", kind)
	}
}

func TestLooksLikeRawJSON(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		`{"text":"hi"}`:                   true,
		"```json\n[{\"a\":1}]\n```":       true,
		"Here are a few dealers near you": false,
		"{not json":                       false,
		"":                                false,
	}
	for in, want := range cases {
		if got := LooksLikeRawJSON(in); got != want {
			t.Fatalf("LooksLikeRawJSON(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeReplacesRawJSON(t *testing.T) {
	t.Parallel()

	env := Envelope{Text: `{"rich_content":[]}`}.Sanitize()
	if env.Text != FallbackText {
		t.Fatalf("unexpected text: %q", env.Text)
	}
	if env.RichContent == nil {
		t.Fatal("rich content must not be nil")
	}
}

func TestImageEditRoundTrip(t *testing.T) {
	t.Parallel()

	msg := ComposeImageEdit(" https://x/y.png ", "add a roof box ")
	if msg != "Edit this image: https://x/y.png with this prompt: add a roof box" {
		t.Fatalf("unexpected message: %q", msg)
	}
	url, instruction, ok := ParseImageEdit(msg)
	if !ok || url != "https://x/y.png" || instruction != "add a roof box" {
		t.Fatalf("ParseImageEdit() = %q, %q, %v", url, instruction, ok)
	}
	if _, _, ok := ParseImageEdit("edit my photo please"); ok {
		t.Fatal("expected parse failure")
	}
}
