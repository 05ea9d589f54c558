package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultOutputFormat      = "pcm_16000"
	defaultTTSModel          = "eleven_flash_v2_5"
	ttsReadBufferSize        = 4096
)

type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// ElevenLabsProvider synthesizes speech with the ElevenLabs streaming
// text-to-speech endpoint.
type ElevenLabsProvider struct {
	cfg ElevenLabsConfig
}

func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultElevenLabsBaseURL
	}
	if cfg.HTTPClient == nil {
		// No client timeout: the body streams for as long as the reply lasts.
		cfg.HTTPClient = &http.Client{}
	}
	return &ElevenLabsProvider{cfg: cfg}
}

type elevenTTSRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, req SynthesisRequest) (AudioStream, error) {
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, fmt.Errorf("elevenlabs: voice_id is required")
	}
	if strings.TrimSpace(req.ModelID) == "" {
		req.ModelID = defaultTTSModel
	}
	if strings.TrimSpace(req.OutputFormat) == "" {
		req.OutputFormat = defaultOutputFormat
	}

	u, err := url.Parse(strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID) + "/stream")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build url: %w", err)
	}
	q := u.Query()
	q.Set("output_format", req.OutputFormat)
	u.RawQuery = q.Encode()

	body, err := json.Marshal(elevenTTSRequest{Text: req.Text, ModelID: req.ModelID})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: new request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/*")

	resp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return &readerStream{body: resp.Body, buf: make([]byte, ttsReadBufferSize)}, nil
}

// readerStream yields whatever each Read returns as one audio buffer.
type readerStream struct {
	body io.ReadCloser
	buf  []byte
}

func (s *readerStream) Recv() ([]byte, error) {
	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, s.buf[:n])
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *readerStream) Close() error { return s.body.Close() }
