package voice

import "context"

type STTEventType string

const (
	// STTEventTranscript carries a stable transcript segment. SpeechFinal marks
	// the engine's end-of-speech decision for the current utterance.
	STTEventTranscript STTEventType = "transcript"
	// STTEventUtteranceEnd reports a silence gap after speech.
	STTEventUtteranceEnd STTEventType = "utterance_end"
)

type STTEvent struct {
	Type        STTEventType
	Text        string
	SpeechFinal bool
	Confidence  float64
}

// STTOptions configures one streaming recognition session.
type STTOptions struct {
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
	SmartFormat    bool
	InterimResults bool
	VADEvents      bool
	UtteranceEndMS int
	EndpointingMS  int
}

// DefaultSTTOptions matches 16kHz linear16 mono telephony audio.
func DefaultSTTOptions() STTOptions {
	return STTOptions{
		Model:          "nova-3",
		Language:       "en-US",
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
		SmartFormat:    true,
		InterimResults: true, // required by utterance_end_ms
		VADEvents:      true,
		UtteranceEndMS: 1000,
		EndpointingMS:  300,
	}
}

// STTSession is a live recognition stream. Events is closed after Close
// returns or when the engine ends the stream.
type STTSession interface {
	SendAudio(ctx context.Context, chunk []byte) error
	Events() <-chan STTEvent
	Close() error
}

type STTProvider interface {
	StartSession(ctx context.Context, opts STTOptions) (STTSession, error)
}

type SynthesisRequest struct {
	Text         string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

// AudioStream yields synthesized audio buffers in order. Recv returns io.EOF
// once the stream is exhausted.
type AudioStream interface {
	Recv() ([]byte, error)
	Close() error
}

type TTSProvider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (AudioStream, error)
}
