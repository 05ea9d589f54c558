package pipeline

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ent0n29/callagent/internal/agent"
	"github.com/ent0n29/callagent/internal/llm"
	"github.com/ent0n29/callagent/internal/observability"
	"github.com/ent0n29/callagent/internal/policy"
	"github.com/ent0n29/callagent/internal/session"
	"github.com/ent0n29/callagent/internal/voice"
)

// call is the per-connection wiring: three queues, one write lock, and the
// collaborators each stage needs.
type call struct {
	sessionID string
	agent     agent.Agent
	cfg       Config

	transport  Transport
	writeMu    sync.Mutex
	closeCause atomic.Value

	inbound    *Queue[[]byte]
	utterances *Queue[string]
	outbound   *Queue[[]byte]
	termOnce   sync.Once

	stt      voice.STTProvider
	llm      llm.Generator
	tts      voice.TTSProvider
	sessions *session.Registry
	limiter  *rate.Limiter
	redactor policy.Redactor

	metrics *observability.Metrics
	logger  *zap.Logger
}

func newCall(sessionID string, a agent.Agent, t Transport, s *Supervisor) *call {
	c := &call{
		sessionID:  sessionID,
		agent:      a,
		cfg:        s.cfg,
		transport:  t,
		inbound:    NewQueue[[]byte](),
		utterances: NewQueue[string](),
		outbound:   NewQueue[[]byte](),
		stt:        s.stt,
		llm:        s.llm,
		tts:        s.tts,
		sessions:   s.sessions,
		metrics:    s.metrics,
		redactor:   policy.NewRedactor(s.cfg.RedactTranscripts),
		logger:     s.logger.With(zap.String("session_id", sessionID), zap.String("agent_id", a.ID)),
	}
	if s.cfg.FrameInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(s.cfg.FrameInterval), 1)
	}
	return c
}

// terminateAll pushes the termination marker onto every queue. Safe to call
// from any exit path; only the first call has an effect.
func (c *call) terminateAll() {
	c.termOnce.Do(func() {
		c.inbound.Terminate()
		c.utterances.Terminate()
		c.outbound.Terminate()
	})
}

// closeTransport closes the transport from the server side. Only the first
// cause is kept.
func (c *call) closeTransport(cause string) {
	c.closeCause.CompareAndSwap(nil, cause)
	_ = c.transport.Close()
}

// closedBy reports why the server closed the transport, or "" when it did not.
func (c *call) closedBy() string {
	cause, _ := c.closeCause.Load().(string)
	return cause
}

// send writes one frame to the transport under the call's write lock.
func (c *call) send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.Send(frame)
}

func (c *call) sttOptions() voice.STTOptions {
	opts := c.cfg.STT
	if c.agent.STTModelID != "" {
		opts.Model = c.agent.STTModelID
	}
	return opts
}
