package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/callagent/internal/agent"
	"github.com/ent0n29/callagent/internal/config"
	"github.com/ent0n29/callagent/internal/httpapi"
	"github.com/ent0n29/callagent/internal/observability"
	"github.com/ent0n29/callagent/internal/pipeline"
	"github.com/ent0n29/callagent/internal/session"
	"github.com/ent0n29/callagent/internal/voice"
)

type EngineInfo struct {
	Provider string
	Detail   string
}

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.Registry
	Agents     agent.Catalog
	Supervisor *pipeline.Supervisor
	Metrics    *observability.Metrics
	Engines    EngineInfo

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

// Build wires the service from cfg. reg receives the Prometheus instruments;
// nil means the default registry.
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)

	agents, err := agent.NewCatalog(ctx, cfg.DatabaseURL, cfg.AgentsFile)
	if err != nil {
		return nil, fmt.Errorf("agent catalog init failed: %w", err)
	}

	engines, err := resolveEngines(cfg)
	if err != nil {
		_ = agents.Close()
		return nil, err
	}
	// Ensure API handlers report which engines are active.
	cfg.EngineProvider = engines.resolved

	sessions := session.NewRegistry(logger)
	sessions.SetDeleteHook(func(_ *session.Session) {
		metrics.SessionEvent("removed")
		metrics.SessionClosed()
	})

	stt := voice.DefaultSTTOptions()
	stt.Language = cfg.DeepgramLanguage
	stt.UtteranceEndMS = cfg.DeepgramUtteranceEndMS
	stt.EndpointingMS = cfg.DeepgramEndpointingMS

	supervisor := pipeline.NewSupervisor(
		sessions,
		agents,
		engines.stt,
		engines.generator,
		engines.tts,
		pipeline.Config{
			OutputFormat:       cfg.ElevenLabsOutputFormat,
			STT:                stt,
			EnforceMaxDuration: cfg.EnforceMaxDuration,
			FrameInterval:      cfg.EgressFrameInterval,
			RedactTranscripts:  cfg.LogRedactPII,
		},
		metrics,
		logger,
	)

	api := httpapi.New(cfg, sessions, agents, supervisor, metrics, logger)

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		Agents:     agents,
		Supervisor: supervisor,
		Metrics:    metrics,
		Engines: EngineInfo{
			Provider: engines.resolved,
			Detail:   engines.detail,
		},
		Cleanup: agents.Close,
	}, nil
}
