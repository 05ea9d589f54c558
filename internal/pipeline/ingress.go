package pipeline

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// runIngress pulls audio from the transport until end-of-stream or a
// receive error, then fans the termination marker out to every queue.
func (c *call) runIngress() {
	defer c.terminateAll()
	for {
		data, err := c.transport.Receive()
		if err != nil {
			switch cause := c.closedBy(); {
			case cause != "":
				c.logger.Info("transport closed by server", zap.String("cause", cause))
			case errors.Is(err, io.EOF):
				c.logger.Info("transport closed by peer")
			default:
				c.logger.Warn("transport receive failed", zap.Error(err))
			}
			return
		}
		c.metrics.AudioFrame("inbound")
		c.inbound.Push(data)
	}
}
