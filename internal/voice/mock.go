package voice

import (
	"context"
	"io"
	"strings"
	"sync"
)

const mockChunksPerUtterance = 150

// MockProvider is a local stand-in for the STT and TTS engines used when no
// API keys are configured. Every mockChunksPerUtterance audio chunks it
// reports a finished utterance; synthesis returns silence sized to the text.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) StartSession(_ context.Context, _ STTOptions) (STTSession, error) {
	return &mockSTTSession{events: make(chan STTEvent, 64)}, nil
}

func (p *MockProvider) Synthesize(_ context.Context, req SynthesisRequest) (AudioStream, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return NewStaticStream(), nil
	}
	// Roughly 80ms of 16kHz PCM16 per character.
	return NewStaticStream(make([]byte, len(text)*2560)), nil
}

type mockSTTSession struct {
	mu     sync.Mutex
	events chan STTEvent
	chunks int
	closed bool
}

func (s *mockSTTSession) SendAudio(_ context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(chunk) == 0 {
		return nil
	}
	s.chunks++
	if s.chunks%mockChunksPerUtterance == 0 {
		select {
		case s.events <- STTEvent{Type: STTEventTranscript, Text: "simulated voice input", SpeechFinal: true, Confidence: 0.7}:
		default:
		}
	}
	return nil
}

func (s *mockSTTSession) Events() <-chan STTEvent { return s.events }

func (s *mockSTTSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// StaticStream is an AudioStream over fixed buffers.
type StaticStream struct {
	mu   sync.Mutex
	bufs [][]byte
}

func NewStaticStream(bufs ...[]byte) *StaticStream {
	return &StaticStream{bufs: bufs}
}

func (s *StaticStream) Recv() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bufs) == 0 {
		return nil, io.EOF
	}
	b := s.bufs[0]
	s.bufs = s.bufs[1:]
	return b, nil
}

func (s *StaticStream) Close() error { return nil }
