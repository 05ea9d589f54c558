package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

// Session is the live state of one in-progress call.
type Session struct {
	ID          string        `json:"session_id"`
	CallUUID    string        `json:"call_uuid"`
	AgentID     string        `json:"agent_id"`
	Transcript  string        `json:"transcript,omitempty"`
	MaxDuration time.Duration `json:"max_duration"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Registry holds every active call keyed by session ID. It is safe for
// concurrent use; records are copied in and out so callers never share
// mutable state with the map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onDelete func(*Session)
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.With(zap.String("component", "session_registry")),
	}
}

// SetDeleteHook registers a callback invoked after a session is removed.
func (r *Registry) SetDeleteHook(hook func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = hook
}

// Create stores a fully built session and returns its generated ID. The
// record is inserted in one step under the lock, so readers never observe a
// partially written session.
func (r *Registry) Create(callUUID, agentID string, maxDuration time.Duration) string {
	now := time.Now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		CallUUID:    callUUID,
		AgentID:     agentID,
		MaxDuration: maxDuration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	size := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("call_uuid", callUUID),
		zap.String("agent_id", agentID),
		zap.Int("active", size),
	)
	return s.ID
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// AppendTranscript adds one "role: text" line to the running transcript.
func (r *Registry) AppendTranscript(sessionID, role, text string) error {
	text = strings.TrimSpace(text)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if text == "" {
		return nil
	}
	line := role + ": " + text
	if s.Transcript == "" {
		s.Transcript = line
	} else {
		s.Transcript += "\n" + line
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a session. Unknown IDs are logged and ignored so cleanup
// paths can call it more than once.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	size := len(r.sessions)
	hook := r.onDelete
	r.mu.Unlock()

	if !ok {
		r.logger.Info("session not found for delete", zap.String("session_id", sessionID))
		return
	}
	r.logger.Info("session removed", zap.String("session_id", sessionID), zap.Int("remaining", size))
	if hook != nil {
		hook(s)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
