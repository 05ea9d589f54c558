package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/callagent/internal/audio"
	"github.com/ent0n29/callagent/internal/llm"
	"github.com/ent0n29/callagent/internal/voice"
)

// runSynthesis answers utterances one at a time: one generation call, one
// synthesis call, then the audio re-framed onto the outbound queue. The next
// utterance is not dequeued until the current one is fully framed.
func (c *call) runSynthesis(ctx context.Context) {
	for {
		item := c.utterances.Pop()
		if item.Terminated {
			return
		}
		c.respond(ctx, item.Value)
	}
}

// respond handles a single utterance. Engine failures are logged and the
// utterance is skipped so one bad turn does not end the call.
func (c *call) respond(ctx context.Context, utterance string) {
	started := time.Now()
	c.appendTranscript("caller", utterance)

	reply, err := c.llm.Generate(ctx, llm.Request{
		Model:        c.agent.LLMModelID,
		SystemPrompt: c.agent.SystemPrompt,
		UserText:     utterance,
	})
	if err != nil {
		c.metrics.EngineError("llm", "synthesis")
		c.logger.Error("text generation failed", zap.String("utterance", c.redactor.Text(utterance)), zap.Error(err))
		return
	}
	c.logger.Info("reply generated", zap.String("reply", c.redactor.Text(reply)))
	c.appendTranscript("agent", reply)

	stream, err := c.tts.Synthesize(ctx, voice.SynthesisRequest{
		Text:         reply,
		VoiceID:      c.agent.VoiceID,
		ModelID:      c.agent.TTSModelID,
		OutputFormat: c.cfg.OutputFormat,
	})
	if err != nil {
		c.metrics.EngineError("tts", "synthesis")
		c.logger.Error("speech synthesis failed", zap.Error(err))
		return
	}
	defer stream.Close()

	first := true
	frames := 0
	for {
		buf, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.metrics.EngineError("tts", "synthesis")
			c.logger.Error("speech synthesis stream failed", zap.Int("frames", frames), zap.Error(err))
			return
		}
		for _, frame := range audio.Chunk(buf, audio.FrameSize) {
			if first {
				first = false
				c.metrics.ObserveReplyLatency(time.Since(started))
			}
			c.outbound.Push(frame)
			frames++
		}
	}
	c.logger.Debug("reply framed", zap.Int("frames", frames))
}

func (c *call) appendTranscript(role, text string) {
	if err := c.sessions.AppendTranscript(c.sessionID, role, text); err != nil {
		c.logger.Debug("transcript not recorded", zap.Error(err))
	}
}
