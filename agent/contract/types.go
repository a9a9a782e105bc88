package contract

import (
	"strings"
	"time"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
)

type Capability string

const (
	CapabilityImageEdit     Capability = "image_edit"
	CapabilityLeadCapture   Capability = "lead_capture"
	CapabilityDealerSearch  Capability = "dealer_search"
	CapabilityPartsSearch   Capability = "parts_search"
	CapabilityWebsiteSearch Capability = "website_search"
)

// ChatTurn is one inbound user message. It is not modified after validation.
type ChatTurn struct {
	UserID        string    `json:"user_id"`
	Message       string    `json:"message"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// AgentRequest is what a tool agent sees. History is a private copy.
type AgentRequest struct {
	Turn    ChatTurn          `json:"turn"`
	History []statex.Exchange `json:"history,omitempty"`
}

type AgentResult struct {
	Capability Capability           `json:"capability"`
	Text       string               `json:"text"`
	Items      []envelopex.RichItem `json:"items,omitempty"`
}

// Empty reports whether the result contributes nothing to an envelope.
func (r AgentResult) Empty() bool {
	for _, it := range r.Items {
		if !it.IsDegenerate() {
			return false
		}
	}
	return strings.TrimSpace(r.Text) == ""
}

type RouteRequest struct {
	Message string            `json:"message"`
	History []statex.Exchange `json:"history,omitempty"`
}

// RouteDecision names the agents to run. DirectReply is set when the router
// answers the turn itself and no agent runs.
type RouteDecision struct {
	Capabilities []Capability `json:"capabilities"`
	DirectReply  string       `json:"direct_reply,omitempty"`
	Source       string       `json:"source,omitempty"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
