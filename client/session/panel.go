package session

import (
	"encoding/json"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

// CloseTrigger names what closed the detail panel.
type CloseTrigger string

const (
	CloseExplicit           CloseTrigger = "explicit"
	CloseOverlay            CloseTrigger = "overlay"
	CloseImageEditSubmitted CloseTrigger = "image_edit_submitted"
)

// Panel is the single detail view. The zero value is closed.
type Panel struct {
	open    bool
	kind    envelopex.Kind
	payload json.RawMessage
}

// Open shows payload, replacing whatever was open.
func (p *Panel) Open(kind envelopex.Kind, payload json.RawMessage) {
	p.open = true
	p.kind = kind
	p.payload = append(json.RawMessage(nil), payload...)
}

// Close is valid from any state.
func (p *Panel) Close(CloseTrigger) {
	*p = Panel{}
}

func (p Panel) IsOpen() bool {
	return p.open
}

// Current returns the open kind and a copy of its payload.
func (p Panel) Current() (envelopex.Kind, json.RawMessage, bool) {
	if !p.open {
		return "", nil, false
	}
	return p.kind, append(json.RawMessage(nil), p.payload...), true
}
