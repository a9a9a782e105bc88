package state

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
	"time"
)

var ErrUpstash = errors.New("upstash command failed")

const (
	defaultKeyPrefix = "concierge:conversation:"
	defaultTTL       = 24 * time.Hour
	maxReplyBytes    = 2 << 20
)

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.keyPrefix = p
		}
	}
}

// WithTTL sets the idle expiry of a conversation. Zero keeps keys forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) { s.ttl = ttl }
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps conversations in Upstash Redis through its REST
// API. Reads refresh the expiry so active sessions do not lapse mid-chat.
type UpstashRedisStore struct {
	endpoint   string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ Store = (*UpstashRedisStore)(nil)

type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upstash rest url %q: %w", cfg.URL, err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	s := &UpstashRedisStore{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		keyPrefix:  defaultKeyPrefix,
		ttl:        defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, fmt.Errorf("upstash ttl must not be negative, got %s", s.ttl)
	}
	return s, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*Conversation, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}

	cmd := []any{"GET", key}
	if s.ttl > 0 {
		cmd = []any{"GETEX", key, "EX", ttlSeconds(s.ttl)}
	}
	reply, err := s.do(ctx, cmd)
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(reply.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrNotFound
	}
	// Values come back as a JSON string holding the stored document.
	var doc string
	if err := json.Unmarshal(result, &doc); err != nil {
		return nil, fmt.Errorf("decode upstash value: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(doc), &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if err := conv.Validate(); err != nil {
		return nil, fmt.Errorf("stored conversation %s: %w", sessionID, err)
	}
	return &conv, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil {
		return ErrNilConversation
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	key, err := s.key(c.SessionID)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	cmd := []any{"SET", key, string(doc)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.do(ctx, cmd)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashRedisStore) key(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	prefix := s.keyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return prefix + id, nil
}

// do posts one Redis command as a JSON array, the form the REST API accepts
// on its root path.
func (s *UpstashRedisStore) do(ctx context.Context, cmd []any) (upstashReply, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return upstashReply{}, fmt.Errorf("marshal %v: %w", cmd[0], err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return upstashReply{}, fmt.Errorf("build upstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return upstashReply{}, fmt.Errorf("%w: %v: %v", ErrUpstash, cmd[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return upstashReply{}, fmt.Errorf("read upstash reply: %w", err)
	}

	var reply upstashReply
	_ = json.Unmarshal(raw, &reply)
	if reply.Error != "" {
		return upstashReply{}, fmt.Errorf("%w: %v: %s", ErrUpstash, cmd[0], reply.Error)
	}
	if resp.StatusCode/100 != 2 {
		return upstashReply{}, fmt.Errorf("%w: %v: status %d", ErrUpstash, cmd[0], resp.StatusCode)
	}
	return reply, nil
}

// ttlSeconds rounds up so sub-second remainders never expire a key early.
func ttlSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	return max(secs, 1)
}
