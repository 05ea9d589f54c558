package app

import (
	"fmt"

	"github.com/ent0n29/callagent/internal/config"
	"github.com/ent0n29/callagent/internal/llm"
	"github.com/ent0n29/callagent/internal/voice"
)

type engineSetup struct {
	stt       voice.STTProvider
	generator llm.Generator
	tts       voice.TTSProvider
	resolved  string
	detail    string
}

func resolveEngines(cfg config.Config) (engineSetup, error) {
	mode := cfg.EngineProvider
	if mode == "" {
		mode = "auto"
	}

	live := func() (engineSetup, error) {
		generator, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return engineSetup{}, fmt.Errorf("openai generator init failed: %w", err)
		}
		return engineSetup{
			stt: voice.NewDeepgramProvider(voice.DeepgramConfig{
				APIKey: cfg.DeepgramAPIKey,
				WSURL:  cfg.DeepgramWSURL,
			}),
			generator: generator,
			tts: voice.NewElevenLabsProvider(voice.ElevenLabsConfig{
				APIKey:  cfg.ElevenLabsAPIKey,
				BaseURL: cfg.ElevenLabsBaseURL,
			}),
			resolved: "live",
			detail:   "deepgram + openai + elevenlabs",
		}, nil
	}
	mock := func(detail string) engineSetup {
		p := voice.NewMockProvider()
		return engineSetup{
			stt:       p,
			generator: llm.EchoGenerator{},
			tts:       p,
			resolved:  "mock",
			detail:    detail,
		}
	}

	switch mode {
	case "live":
		if !cfg.LiveEnginesConfigured() {
			return engineSetup{}, fmt.Errorf("ENGINE_PROVIDER=live requires DEEPGRAM_API_KEY, OPENAI_API_KEY and ELEVENLABS_API_KEY")
		}
		return live()
	case "mock":
		return mock("mock engines"), nil
	case "auto":
		if cfg.LiveEnginesConfigured() {
			return live()
		}
		return mock("mock engines (api keys not set)"), nil
	default:
		return engineSetup{}, fmt.Errorf("unsupported ENGINE_PROVIDER %q", mode)
	}
}
