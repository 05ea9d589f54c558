package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/callagent/internal/agent"
	"github.com/ent0n29/callagent/internal/llm"
	"github.com/ent0n29/callagent/internal/observability"
	"github.com/ent0n29/callagent/internal/session"
	"github.com/ent0n29/callagent/internal/voice"
)

type Config struct {
	// OutputFormat is passed to the synthesis engine, e.g. "pcm_16000".
	OutputFormat string
	// STT holds the recognition options; the model comes from the agent.
	STT voice.STTOptions
	// EnforceMaxDuration closes the transport once a session's MaxDuration
	// has elapsed.
	EnforceMaxDuration bool
	// FrameInterval paces outbound writes. Zero writes as fast as frames arrive.
	FrameInterval time.Duration
	// RedactTranscripts masks PII in logged utterances and replies.
	RedactTranscripts bool
}

// Supervisor runs one pipeline per attached transport connection.
type Supervisor struct {
	sessions *session.Registry
	agents   agent.Catalog
	stt      voice.STTProvider
	llm      llm.Generator
	tts      voice.TTSProvider
	cfg      Config
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewSupervisor(
	sessions *session.Registry,
	agents agent.Catalog,
	stt voice.STTProvider,
	generator llm.Generator,
	tts voice.TTSProvider,
	cfg Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pcm_16000"
	}
	return &Supervisor{
		sessions: sessions,
		agents:   agents,
		stt:      stt,
		llm:      generator,
		tts:      tts,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "pipeline")),
	}
}

// Attach runs the call pipeline for sessionID over t and returns once every
// stage has exited and the session has been removed from the registry. A
// session or agent that cannot be resolved closes t and returns the lookup
// error without starting any stage.
func (s *Supervisor) Attach(ctx context.Context, sessionID string, t Transport) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.metrics.SessionEvent("setup_failed")
		s.logger.Warn("unknown session on attach", zap.String("session_id", sessionID), zap.Error(err))
		_ = t.Close()
		return fmt.Errorf("resolve session %s: %w", sessionID, err)
	}
	a, err := s.agents.Get(ctx, sess.AgentID)
	if err != nil {
		s.metrics.SessionEvent("setup_failed")
		s.logger.Warn("unknown agent on attach",
			zap.String("session_id", sessionID),
			zap.String("agent_id", sess.AgentID),
			zap.Error(err),
		)
		_ = t.Close()
		// The session can never be served; drop it rather than leak it.
		s.sessions.Delete(sessionID)
		return fmt.Errorf("resolve agent %s: %w", sess.AgentID, err)
	}

	c := newCall(sessionID, a, t, s)
	c.logger = c.logger.With(zap.String("call_uuid", sess.CallUUID))
	c.logger.Info("pipeline starting")
	s.metrics.SessionEvent("attached")

	defer func() {
		_ = t.Close()
		s.sessions.Delete(sessionID)
		c.logger.Info("pipeline cleaned up")
	}()

	var g errgroup.Group
	g.Go(func() error { c.runTranscription(ctx); return nil })
	g.Go(func() error { c.runSynthesis(ctx); return nil })
	g.Go(func() error { c.runEgress(ctx); return nil })

	if s.cfg.EnforceMaxDuration && sess.MaxDuration > 0 {
		timer := time.AfterFunc(sess.MaxDuration, func() {
			c.logger.Info("max call duration reached; closing transport", zap.Duration("max_duration", sess.MaxDuration))
			s.metrics.SessionEvent("max_duration")
			c.closeTransport("max_duration")
		})
		defer timer.Stop()
	}

	c.runIngress()
	c.terminateAll()
	_ = g.Wait()
	return nil
}
