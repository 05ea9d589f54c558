package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/callagent/internal/llm"
	"github.com/ent0n29/callagent/internal/voice"
)

var errTransportClosed = errors.New("transport closed")

// callLog records cross-component ordering.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type fakeTransport struct {
	mu      sync.Mutex
	inbound [][]byte
	sent    [][]byte

	// recvErr is returned once inbound is exhausted.
	recvErr error
	// eofAfterFrames holds Receive open until that many frames were sent.
	eofAfterFrames int
	// blockUntilClose holds Receive open until Close.
	blockUntilClose bool
	sendErr         error

	framesReached chan struct{}
	closed        chan struct{}
	closeOnce     sync.Once
	log           *callLog
}

func newFakeTransport(inbound ...[]byte) *fakeTransport {
	return &fakeTransport{
		inbound:       inbound,
		framesReached: make(chan struct{}),
		closed:        make(chan struct{}),
	}
}

func (t *fakeTransport) Receive() ([]byte, error) {
	t.mu.Lock()
	if len(t.inbound) > 0 {
		data := t.inbound[0]
		t.inbound = t.inbound[1:]
		t.mu.Unlock()
		return data, nil
	}
	t.mu.Unlock()

	switch {
	case t.recvErr != nil:
		return nil, t.recvErr
	case t.eofAfterFrames > 0:
		select {
		case <-t.framesReached:
		case <-t.closed:
		}
	case t.blockUntilClose:
		<-t.closed
	}
	return nil, io.EOF
}

func (t *fakeTransport) Send(frame []byte) error {
	select {
	case <-t.closed:
		return errTransportClosed
	default:
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, append([]byte(nil), frame...))
	if t.log != nil {
		t.log.add("send")
	}
	if len(t.sent) == t.eofAfterFrames {
		close(t.framesReached)
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent...)
}

// fakeSTT emits its script after the first audio chunk arrives.
type fakeSTT struct {
	mu       sync.Mutex
	startErr error
	script   []voice.STTEvent
	starts   int
	opts     voice.STTOptions
	sessions []*fakeSTTSession
}

func (f *fakeSTT) StartSession(_ context.Context, opts voice.STTOptions) (voice.STTSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.opts = opts
	if f.startErr != nil {
		return nil, f.startErr
	}
	s := &fakeSTTSession{script: f.script, events: make(chan voice.STTEvent, len(f.script)+1)}
	f.sessions = append(f.sessions, s)
	return s, nil
}

type fakeSTTSession struct {
	mu      sync.Mutex
	script  []voice.STTEvent
	events  chan voice.STTEvent
	chunks  int
	emitted bool
	closed  bool
}

func (s *fakeSTTSession) SendAudio(_ context.Context, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks++
	if !s.emitted {
		s.emitted = true
		for _, ev := range s.script {
			s.events <- ev
		}
	}
	return nil
}

func (s *fakeSTTSession) Events() <-chan voice.STTEvent { return s.events }

func (s *fakeSTTSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

type fakeLLM struct {
	mu    sync.Mutex
	calls []llm.Request
	reply string
	// errs[i] is returned for the i-th call when non-nil.
	errs []error
	log  *callLog
}

func (f *fakeLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, req)
	if f.log != nil {
		f.log.add("llm")
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	return f.reply, nil
}

func (f *fakeLLM) requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

type fakeTTS struct {
	mu    sync.Mutex
	calls []voice.SynthesisRequest
	bufs  [][]byte
	err   error
	log   *callLog
}

func (f *fakeTTS) Synthesize(_ context.Context, req voice.SynthesisRequest) (voice.AudioStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.log != nil {
		f.log.add("tts")
	}
	if f.err != nil {
		return nil, f.err
	}
	return voice.NewStaticStream(f.bufs...), nil
}

func (f *fakeTTS) requests() []voice.SynthesisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]voice.SynthesisRequest(nil), f.calls...)
}

// attachAsync runs Attach and fails the test if it does not return in time.
func attachAsync(t *testing.T, s *Supervisor, sessionID string, tr Transport) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Attach(context.Background(), sessionID, tr) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("Attach(%s) did not return", sessionID)
		return nil
	}
}
