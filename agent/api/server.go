// Package api exposes the concierge over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const (
	UserIDHeader       = "X-User-Id"
	maxRequestBodySize = 1 << 20
)

type Config struct {
	Addr           string   `envconfig:"ADDR" default:":8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" split_words:"true" default:"*"`
	CookieName     string   `envconfig:"COOKIE_NAME" split_words:"true" default:"concierge_user_id"`
	CookieSecure   bool     `envconfig:"COOKIE_SECURE" split_words:"true"`
}

type TurnHandler interface {
	HandleTurn(ctx context.Context, turn contractx.ChatTurn) (envelopex.Envelope, error)
	Reset(ctx context.Context, userID string) error
}

type StarterSource interface {
	Starters(ctx context.Context, userID string) []string
}

type Server struct {
	router   *chi.Mux
	cfg      Config
	turns    TurnHandler
	starters StarterSource
	now      func() time.Time
}

type chatRequest struct {
	UserID        string `json:"user_id"`
	Message       string `json:"message"`
	AttachmentRef string `json:"attachment_ref"`
}

type startersResponse struct {
	Starters []string `json:"starters"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(cfg Config, turns TurnHandler, starters StarterSource) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "concierge_user_id"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserIDHeader},
		ExposedHeaders:   []string{UserIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		turns:    turns,
		starters: starters,
		now:      time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Post("/chat", s.handleChat)
	s.router.Get("/starters", s.handleStarters)
	s.router.Delete("/session", s.handleReset)
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	userID := s.resolveUserID(w, r, req.UserID)
	env, err := s.turns.HandleTurn(r.Context(), contractx.ChatTurn{
		UserID:        userID,
		Message:       req.Message,
		AttachmentRef: strings.TrimSpace(req.AttachmentRef),
		Timestamp:     s.now().UTC(),
	})
	if errors.Is(err, contractx.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("chat turn failed")
		writeJSON(w, http.StatusOK, envelopex.Fallback())
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleStarters(w http.ResponseWriter, r *http.Request) {
	userID := s.resolveUserID(w, r, r.URL.Query().Get("user_id"))
	writeJSON(w, http.StatusOK, startersResponse{Starters: s.starters.Starters(r.Context(), userID)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := s.resolveUserID(w, r, r.URL.Query().Get("user_id"))
	if err := s.turns.Reset(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("reset session failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not reset session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveUserID prefers the explicit id, then the cookie, and mints a new id
// otherwise. The chosen id is echoed in a cookie and a header.
func (s *Server) resolveUserID(w http.ResponseWriter, r *http.Request, explicit string) string {
	userID := strings.TrimSpace(explicit)
	if userID == "" {
		if c, err := r.Cookie(s.cfg.CookieName); err == nil {
			userID = strings.TrimSpace(c.Value)
		}
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
	})
	w.Header().Set(UserIDHeader, userID)
	return userID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}
