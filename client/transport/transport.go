// Package transport submits turns to the concierge HTTP API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const userIDHeader = "X-User-Id"

var (
	ErrTurnInFlight = errors.New("a turn is already in flight")
	ErrTransport    = errors.New("concierge transport failed")
	ErrRejected     = errors.New("concierge rejected the message")
)

// ApologyText is shown when a turn could not be delivered.
const ApologyText = "Sorry, I couldn't reach the concierge. Please try again."

type Client struct {
	baseURL  string
	http     *http.Client
	inFlight atomic.Bool

	mu     sync.RWMutex
	userID string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithUserID(id string) Option {
	return func(c *Client) {
		c.userID = strings.TrimSpace(id)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// InFlight reports whether a turn is outstanding.
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

// SubmitTurn sends one message. A second call while one is outstanding fails
// with ErrTurnInFlight without touching the network.
func (c *Client) SubmitTurn(ctx context.Context, message string) (envelopex.Envelope, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return envelopex.Envelope{}, ErrTurnInFlight
	}
	defer c.inFlight.Store(false)

	body, err := json.Marshal(map[string]string{
		"user_id": c.UserID(),
		"message": message,
	})
	if err != nil {
		return envelopex.Envelope{}, fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}

	var env envelopex.Envelope
	if err := c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(body), &env); err != nil {
		return envelopex.Envelope{}, err
	}
	if env.RichContent == nil {
		env.RichContent = []envelopex.RichItem{}
	}
	return env, nil
}

// SubmitImageEdit composes and sends an image edit request.
func (c *Client) SubmitImageEdit(ctx context.Context, imageURL, instruction string) (envelopex.Envelope, error) {
	return c.SubmitTurn(ctx, envelopex.ComposeImageEdit(imageURL, instruction))
}

func (c *Client) Starters(ctx context.Context) ([]string, error) {
	var out struct {
		Starters []string `json:"starters"`
	}
	path := "/starters"
	if id := c.UserID(); id != "" {
		path += "?user_id=" + url.QueryEscape(id)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Starters, nil
}

// Reset forgets the server-side conversation of this user.
func (c *Client) Reset(ctx context.Context) error {
	path := "/session"
	if id := c.UserID(); id != "" {
		path += "?user_id=" + url.QueryEscape(id)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if id := strings.TrimSpace(resp.Header.Get(userIDHeader)); id != "" {
		c.mu.Lock()
		c.userID = id
		c.mu.Unlock()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode == http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return fmt.Errorf("%w: %s", ErrRejected, e.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}
