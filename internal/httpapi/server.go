package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/callagent/internal/agent"
	"github.com/ent0n29/callagent/internal/config"
	"github.com/ent0n29/callagent/internal/observability"
	"github.com/ent0n29/callagent/internal/pipeline"
	"github.com/ent0n29/callagent/internal/session"
	"github.com/ent0n29/callagent/internal/vonage"
)

// Attacher runs a call pipeline over an accepted media connection.
type Attacher interface {
	Attach(ctx context.Context, sessionID string, t pipeline.Transport) error
}

type Server struct {
	cfg        config.Config
	sessions   *session.Registry
	agents     agent.Catalog
	supervisor Attacher
	metrics    *observability.Metrics
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Registry, agents agent.Catalog, supervisor Attacher, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		agents:     agents,
		supervisor: supervisor,
		metrics:    metrics,
		logger:     logger.With(zap.String("component", "httpapi")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The media socket is dialled by Vonage, never by a browser.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recovery(s.logger), requestLogger(s.logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "callagent is running\n")
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/webhooks/answer", s.handleAnswer)
	r.Post("/webhooks/answer", s.handleAnswer)
	r.Post("/webhooks/event", s.handleEvent)
	r.Get("/socket/{id}", s.handleSocket)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Get("/v1/agents", s.handleListAgents)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"engine_provider": s.cfg.EngineProvider,
		"active_sessions": s.sessions.Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.supervisor == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "pipeline supervisor not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handleAnswer registers the call and tells Vonage to stream its audio to
// this server's media socket.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if !s.verified(w, r) {
		return
	}
	q := r.URL.Query()
	callUUID := strings.TrimSpace(q.Get("uuid"))
	if callUUID == "" {
		s.logger.Warn("answer webhook without call uuid")
		respondError(w, http.StatusBadRequest, "missing_uuid", "Vonage UUID missing")
		return
	}
	agentID := strings.TrimSpace(q.Get("agent_id"))
	if agentID == "" {
		s.logger.Warn("answer webhook without agent id", zap.String("call_uuid", callUUID))
		respondError(w, http.StatusBadRequest, "missing_agent_id", "agent ID missing")
		return
	}

	id := s.sessions.Create(callUUID, agentID, s.cfg.CallMaxDuration)
	s.metrics.SessionEvent("created")
	s.metrics.SessionOpened()

	respondJSON(w, http.StatusOK, vonage.ConnectNCCO(s.socketURL(r, id), id))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !s.verified(w, r) {
		return
	}
	var event map[string]any
	if err := decodeJSON(r, &event); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	fields := []zap.Field{zap.Any("event", event)}
	if status, ok := event["status"].(string); ok {
		fields = append(fields, zap.String("status", status))
	}
	if id, ok := event["uuid"].(string); ok {
		fields = append(fields, zap.String("call_uuid", id))
	}
	s.logger.Info("call status changed", fields...)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.supervisor == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "pipeline supervisor not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	s.logger.Info("media socket opened", zap.String("session_id", id))
	s.metrics.SessionEvent("ws_connected")

	t := vonage.NewTransport(conn, s.logger)
	if err := s.supervisor.Attach(r.Context(), id, t); err != nil {
		s.logger.Warn("call pipeline not started", zap.String("session_id", id), zap.Error(err))
	}
	s.metrics.SessionEvent("ws_disconnected")
	s.logger.Info("media socket closed", zap.String("session_id", id))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if s.agents == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "agent catalog not configured")
		return
	}
	agents, err := s.agents.List(r.Context())
	if err != nil {
		s.logger.Error("list agents failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "catalog_error", "could not list agents")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// verified enforces webhook signatures when a secret is configured.
func (s *Server) verified(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.VonageSignatureSecret == "" {
		return true
	}
	if err := vonage.VerifySignature(r, s.cfg.VonageSignatureSecret); err != nil {
		s.logger.Warn("rejected unsigned webhook", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusUnauthorized, "invalid_signature", "webhook signature rejected")
		return false
	}
	return true
}

func (s *Server) socketURL(r *http.Request, sessionID string) string {
	host := s.cfg.PublicHost
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("wss://%s/socket/%s", host, sessionID)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
