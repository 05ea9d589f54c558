package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// runEgress writes outbound frames to the transport in queue order. A write
// failure closes the transport, which unwinds the call through ingress; the
// remaining frames are then drained without writing.
func (c *call) runEgress(ctx context.Context) {
	failed := false
	for {
		item := c.outbound.Pop()
		if item.Terminated {
			return
		}
		if failed {
			continue
		}
		if c.limiter != nil {
			// Wait only fails once ctx is done; the frame is still written.
			_ = c.limiter.Wait(ctx)
		}
		if err := c.send(item.Value); err != nil {
			failed = true
			c.logger.Warn("transport send failed", zap.Error(err))
			c.closeTransport("send_failed")
			continue
		}
		c.metrics.AudioFrame("outbound")
	}
}
