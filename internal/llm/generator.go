// Package llm defines the text-generation contract used to answer caller
// utterances, with an OpenAI implementation and a local echo fallback.
package llm

import (
	"context"
	"strings"
)

// Request is one single-shot generation: no history is carried between calls.
type Request struct {
	Model        string
	SystemPrompt string
	UserText     string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// EchoGenerator answers without calling any model. Used when no API key is
// configured.
type EchoGenerator struct{}

func (EchoGenerator) Generate(_ context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.UserText)
	if text == "" {
		return "Sorry, I didn't catch that.", nil
	}
	return "You said: " + text, nil
}
