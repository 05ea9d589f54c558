package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ent0n29/callagent/internal/voice"
)

// runTranscription forwards inbound audio to the STT engine and turns its
// events into utterances. Audio forwarding runs here; event handling runs in
// a second goroutine that exclusively owns the accumulator. A partial
// utterance left in the buffer at termination is dropped.
func (c *call) runTranscription(ctx context.Context) {
	sess, err := c.stt.StartSession(ctx, c.sttOptions())
	if err != nil {
		c.metrics.EngineError("stt", "transcription")
		c.logger.Error("failed to start stt stream", zap.Error(err))
		return
	}

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		c.consumeTranscripts(sess.Events())
	}()

	sendFailed := false
	for {
		item := c.inbound.Pop()
		if item.Terminated {
			break
		}
		if err := sess.SendAudio(ctx, item.Value); err != nil && !sendFailed {
			sendFailed = true
			c.metrics.EngineError("stt", "transcription")
			c.logger.Warn("stt send failed; dropping audio until call ends", zap.Error(err))
		}
	}

	if err := sess.Close(); err != nil {
		c.logger.Warn("stt close failed", zap.Error(err))
	}
	<-eventsDone
	c.logger.Info("stt stream finished")
}

func (c *call) consumeTranscripts(events <-chan voice.STTEvent) {
	var acc Accumulator
	for ev := range events {
		for _, e := range translateSTTEvent(ev) {
			utterance, ok := acc.Apply(e)
			if !ok {
				continue
			}
			c.logger.Info("utterance completed", zap.String("text", c.redactor.Text(utterance)))
			if c.utterances.Push(utterance) {
				c.metrics.Utterance()
			}
		}
	}
	if n := acc.Pending(); n > 0 {
		c.logger.Debug("partial utterance dropped", zap.Int("fragments", n))
	}
}

// translateSTTEvent maps an engine event onto accumulator events. A segment
// that also carries the end-of-speech flag becomes a fragment followed by a
// final.
func translateSTTEvent(ev voice.STTEvent) []Event {
	switch ev.Type {
	case voice.STTEventTranscript:
		out := []Event{{Kind: FragmentReceived, Text: ev.Text}}
		if ev.SpeechFinal {
			out = append(out, Event{Kind: FinalReceived})
		}
		return out
	case voice.STTEventUtteranceEnd:
		return []Event{{Kind: BoundaryReceived}}
	default:
		return nil
	}
}
