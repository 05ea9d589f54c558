package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	defaultDeepgramURL  = "wss://api.deepgram.com/v1/listen"
	deepgramCloseWait   = 3 * time.Second
	deepgramEventBuffer = 256
)

type DeepgramConfig struct {
	APIKey string
	WSURL  string
}

// DeepgramProvider streams audio to Deepgram's live transcription websocket.
type DeepgramProvider struct {
	cfg DeepgramConfig
}

func NewDeepgramProvider(cfg DeepgramConfig) *DeepgramProvider {
	if strings.TrimSpace(cfg.WSURL) == "" {
		cfg.WSURL = defaultDeepgramURL
	}
	return &DeepgramProvider{cfg: cfg}
}

func (p *DeepgramProvider) StartSession(ctx context.Context, opts STTOptions) (STTSession, error) {
	u, err := p.buildURL(opts)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build url: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	readCtx, cancel := context.WithCancel(context.Background())
	s := &deepgramSession{
		conn:     conn,
		events:   make(chan STTEvent, deepgramEventBuffer),
		readDone: make(chan struct{}),
		cancel:   cancel,
	}
	go s.readLoop(readCtx)
	return s, nil
}

func (p *DeepgramProvider) buildURL(opts STTOptions) (string, error) {
	u, err := url.Parse(p.cfg.WSURL)
	if err != nil {
		return "", err
	}
	def := DefaultSTTOptions()
	if opts.Model == "" {
		opts.Model = def.Model
	}
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.Encoding == "" {
		opts.Encoding = def.Encoding
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = def.Channels
	}

	q := u.Query()
	q.Set("model", opts.Model)
	q.Set("language", opts.Language)
	q.Set("encoding", opts.Encoding)
	q.Set("sample_rate", strconv.Itoa(opts.SampleRate))
	q.Set("channels", strconv.Itoa(opts.Channels))
	q.Set("smart_format", strconv.FormatBool(opts.SmartFormat))
	// Deepgram rejects utterance_end_ms unless interim results are on. The
	// interim segments themselves are discarded by parseDeepgramMessage.
	q.Set("interim_results", strconv.FormatBool(opts.InterimResults))
	q.Set("vad_events", strconv.FormatBool(opts.VADEvents))
	if opts.UtteranceEndMS > 0 {
		q.Set("utterance_end_ms", strconv.Itoa(opts.UtteranceEndMS))
	}
	if opts.EndpointingMS > 0 {
		q.Set("endpointing", strconv.Itoa(opts.EndpointingMS))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type deepgramMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramSession struct {
	conn      *websocket.Conn
	events    chan STTEvent
	readDone  chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *deepgramSession) SendAudio(ctx context.Context, chunk []byte) error {
	select {
	case <-s.readDone:
		return errors.New("deepgram: stream closed")
	default:
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
		return fmt.Errorf("deepgram: send audio: %w", err)
	}
	return nil
}

func (s *deepgramSession) Events() <-chan STTEvent { return s.events }

// Close asks Deepgram to flush and end the stream, waits briefly for the
// remaining results, then tears the socket down.
func (s *deepgramSession) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), deepgramCloseWait)
		defer cancel()
		_ = s.conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		select {
		case <-s.readDone:
		case <-ctx.Done():
		}
		s.cancel()
		// The server may already have closed its side after the flush.
		_ = s.conn.Close(websocket.StatusNormalClosure, "stream finished")
		<-s.readDone
	})
	return nil
}

func (s *deepgramSession) readLoop(ctx context.Context) {
	defer close(s.readDone)
	defer close(s.events)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		ev, ok := parseDeepgramMessage(data)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// parseDeepgramMessage maps a Deepgram message to an STT event. Interim
// results are dropped: only is_final segments are stable enough to append to
// an utterance.
func parseDeepgramMessage(data []byte) (STTEvent, bool) {
	var msg deepgramMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return STTEvent{}, false
	}
	switch msg.Type {
	case "Results":
		if !msg.IsFinal {
			return STTEvent{}, false
		}
		ev := STTEvent{Type: STTEventTranscript, SpeechFinal: msg.SpeechFinal}
		if len(msg.Channel.Alternatives) > 0 {
			ev.Text = msg.Channel.Alternatives[0].Transcript
			ev.Confidence = msg.Channel.Alternatives[0].Confidence
		}
		return ev, true
	case "UtteranceEnd":
		return STTEvent{Type: STTEventUtteranceEnd}, true
	default:
		return STTEvent{}, false
	}
}
