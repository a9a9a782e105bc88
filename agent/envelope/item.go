package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type Kind string

const (
	KindSearchResult Kind = "search_result"
	KindDealer       Kind = "dealer"
	KindAccessory    Kind = "accessory"
	KindLeadCapture  Kind = "lead_capture"
	KindEditedImage  Kind = "edited_image"
)

// Kinds lists every known variant in structural priority order.
var Kinds = []Kind{
	KindEditedImage,
	KindLeadCapture,
	KindDealer,
	KindAccessory,
	KindSearchResult,
}

func (k Kind) Valid() bool {
	switch k {
	case KindSearchResult, KindDealer, KindAccessory, KindLeadCapture, KindEditedImage:
		return true
	default:
		return false
	}
}

type SearchResult struct {
	Title    string   `json:"title,omitempty"`
	Link     string   `json:"link,omitempty"`
	PageURL  string   `json:"pageUrl,omitempty"`
	Snippet  string   `json:"snippet,omitempty"`
	Snippets []string `json:"snippets,omitempty"`
	Image    string   `json:"image,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// URL returns the page link, whichever field carried it.
func (r SearchResult) URL() string {
	if r.Link != "" {
		return r.Link
	}
	return r.PageURL
}

func (r SearchResult) ImageRef() string {
	if r.Image != "" {
		return r.Image
	}
	return r.ImageURL
}

func (r SearchResult) Text() string {
	if r.Snippet != "" {
		return r.Snippet
	}
	if len(r.Snippets) > 0 {
		return r.Snippets[0]
	}
	return ""
}

type InventoryEntry struct {
	Model string `json:"model,omitempty"`
	Trim  string `json:"trim,omitempty"`
	Count int    `json:"count"`
}

type Dealer struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name,omitempty"`
	Address       string            `json:"address,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Hours         map[string]string `json:"hours,omitempty"`
	Inventory     []InventoryEntry  `json:"inventory,omitempty"`
	DistanceMiles *float64          `json:"distance_miles,omitempty"`
}

// Price is a decimal amount rendered with two fraction digits on the wire.
type Price float64

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 2, 64)), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", string(data), err)
	}
	*p = Price(v)
	return nil
}

func (p Price) String() string {
	return "$" + strconv.FormatFloat(float64(p), 'f', 2, 64)
}

type Compatibility struct {
	Model string `json:"model,omitempty"`
	Years []int  `json:"years,omitempty"`
}

type Accessory struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Price         Price           `json:"price"`
	Description   string          `json:"description,omitempty"`
	PartNumber    string          `json:"part_number,omitempty"`
	Compatibility []Compatibility `json:"compatibility,omitempty"`
}

type LeadCapture struct {
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	VehicleModel      string `json:"vehicle_model,omitempty"`
	VehicleYear       int    `json:"vehicle_year,omitempty"`
	Email             string `json:"email,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	ZipCode           string `json:"zip_code,omitempty"`
	ContactPreference string `json:"contact_preference,omitempty"`
	DealerSummary     string `json:"dealer_summary,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type EditedImage struct {
	ImageURL string `json:"image_url,omitempty"`
}

// RichItem is a tagged union over the envelope variants. Exactly one variant
// pointer is set when Kind is valid. Items decoded without a kind keep their
// raw fields until a resolver decides what they are.
type RichItem struct {
	Kind Kind

	SearchResult *SearchResult
	Dealer       *Dealer
	Accessory    *Accessory
	LeadCapture  *LeadCapture
	EditedImage  *EditedImage

	raw json.RawMessage
}

func NewSearchResult(v SearchResult) RichItem {
	return RichItem{Kind: KindSearchResult, SearchResult: &v}
}

func NewDealer(v Dealer) RichItem {
	return RichItem{Kind: KindDealer, Dealer: &v}
}

func NewAccessory(v Accessory) RichItem {
	return RichItem{Kind: KindAccessory, Accessory: &v}
}

func NewLeadCapture(v LeadCapture) RichItem {
	return RichItem{Kind: KindLeadCapture, LeadCapture: &v}
}

func NewEditedImage(v EditedImage) RichItem {
	return RichItem{Kind: KindEditedImage, EditedImage: &v}
}

// Untagged wraps a raw JSON object that carries no kind.
func Untagged(raw json.RawMessage) RichItem {
	return RichItem{raw: append(json.RawMessage(nil), raw...)}
}

// Payload returns the variant value, or nil for unresolved items.
func (it RichItem) Payload() any {
	switch it.Kind {
	case KindSearchResult:
		if it.SearchResult != nil {
			return it.SearchResult
		}
	case KindDealer:
		if it.Dealer != nil {
			return it.Dealer
		}
	case KindAccessory:
		if it.Accessory != nil {
			return it.Accessory
		}
	case KindLeadCapture:
		if it.LeadCapture != nil {
			return it.LeadCapture
		}
	case KindEditedImage:
		if it.EditedImage != nil {
			return it.EditedImage
		}
	}
	return nil
}

// Tagged reports whether the item carries a known kind and its payload.
func (it RichItem) Tagged() bool {
	return it.Kind.Valid() && it.Payload() != nil
}

// Fields returns the item as a field map without the kind tag.
func (it RichItem) Fields() (map[string]json.RawMessage, error) {
	var src []byte
	if payload := it.Payload(); payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		src = b
	} else {
		src = it.raw
	}

	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(src)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(src, &fields); err != nil {
		return nil, fmt.Errorf("rich item is not an object: %w", err)
	}
	delete(fields, "kind")
	return fields, nil
}

// IsDegenerate reports whether the item has no populated field.
func (it RichItem) IsDegenerate() bool {
	fields, err := it.Fields()
	if err != nil {
		return true
	}
	for _, v := range fields {
		if populated(v) {
			return false
		}
	}
	return true
}

// As decodes an unresolved item into the given variant.
func (it RichItem) As(kind Kind) (RichItem, error) {
	if it.Tagged() {
		if it.Kind != kind {
			return RichItem{}, fmt.Errorf("%w: item is %s, not %s", ErrClassificationAmbiguity, it.Kind, kind)
		}
		return it, nil
	}
	fields, err := it.Fields()
	if err != nil {
		return RichItem{}, err
	}
	src, err := json.Marshal(fields)
	if err != nil {
		return RichItem{}, err
	}
	return decodeVariant(kind, src)
}

func (it RichItem) MarshalJSON() ([]byte, error) {
	if !it.Tagged() && len(bytes.TrimSpace(it.raw)) > 0 {
		return append([]byte(nil), it.raw...), nil
	}
	fields, err := it.Fields()
	if err != nil {
		return nil, err
	}
	if it.Tagged() {
		tag, err := json.Marshal(it.Kind)
		if err != nil {
			return nil, err
		}
		fields["kind"] = tag
	}
	return json.Marshal(fields)
}

// UnmarshalJSON never fails on a single element. Elements that are not
// objects, or whose fields do not fit their kind, stay unresolved so the rest
// of the envelope still decodes.
func (it *RichItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*it = Untagged(data)
		return nil
	}

	rawKind, ok := fields["kind"]
	if !ok {
		*it = Untagged(data)
		return nil
	}

	var kind Kind
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		*it = Untagged(data)
		return nil
	}
	if !kind.Valid() {
		// Unknown kinds stay unresolved so newer producers do not break older clients.
		*it = RichItem{Kind: kind, raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	decoded, err := decodeVariant(kind, data)
	if err != nil {
		*it = RichItem{Kind: kind, raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*it = decoded
	return nil
}

func decodeVariant(kind Kind, data []byte) (RichItem, error) {
	var (
		item RichItem
		err  error
	)
	switch kind {
	case KindSearchResult:
		var v SearchResult
		err = json.Unmarshal(data, &v)
		item = NewSearchResult(v)
	case KindDealer:
		var v Dealer
		err = json.Unmarshal(data, &v)
		item = NewDealer(v)
	case KindAccessory:
		var v Accessory
		err = json.Unmarshal(data, &v)
		item = NewAccessory(v)
	case KindLeadCapture:
		var v LeadCapture
		err = json.Unmarshal(data, &v)
		item = NewLeadCapture(v)
	case KindEditedImage:
		var v EditedImage
		err = json.Unmarshal(data, &v)
		item = NewEditedImage(v)
	default:
		return RichItem{}, fmt.Errorf("%w: unknown kind %q", ErrClassificationAmbiguity, kind)
	}
	if err != nil {
		return RichItem{}, fmt.Errorf("decode %s item: %w", kind, err)
	}
	return item, nil
}

func populated(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", `""`, "[]", "{}", "0", "0.00", "false":
		return false
	default:
		return true
	}
}
