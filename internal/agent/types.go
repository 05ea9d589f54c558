package agent

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("agent not found")

// Agent is a persona configuration selecting the models, voice and prompt used
// for a call.
type Agent struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	LLMModelID   string `json:"llm_model_id" yaml:"llm_model_id"`
	TTSModelID   string `json:"tts_model_id" yaml:"tts_model_id"`
	STTModelID   string `json:"stt_model_id" yaml:"stt_model_id"`
	VoiceID      string `json:"voice_id" yaml:"voice_id"`
}

// Catalog resolves agents by identifier.
type Catalog interface {
	Get(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
	Close() error
}

// DefaultAgents is the built-in catalog used when nothing else is configured.
func DefaultAgents() []Agent {
	return []Agent{
		{
			ID:           "agent_001",
			Name:         "Test Agent",
			SystemPrompt: "You are a helpful assistant.",
			LLMModelID:   "gpt-4o-mini",
			TTSModelID:   "eleven_flash_v2_5",
			STTModelID:   "nova-3",
			VoiceID:      "nPczCjzI2devNBz1zQrb",
		},
	}
}
