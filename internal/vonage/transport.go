// Package vonage adapts the Vonage Voice API to the call pipeline: the
// websocket media transport, answer NCCOs, webhook signatures and outbound
// call creation.
package vonage

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 10 * time.Second
	// Vonage sends 640-byte binary frames; the limit only guards runaway peers.
	readLimit = 1 << 20
)

// Transport carries raw L16 audio over a Vonage websocket connection.
type Transport struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func NewTransport(conn *websocket.Conn, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn.SetReadLimit(readLimit)
	return &Transport{
		conn:   conn,
		logger: logger.With(zap.String("component", "vonage_transport")),
		closed: make(chan struct{}),
	}
}

// Receive returns the next binary audio frame. Text frames such as the
// initial websocket:connected event are skipped. A closed connection yields
// io.EOF.
func (t *Transport) Receive() ([]byte, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.isClosed() ||
				errors.Is(err, net.ErrClosed) ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}
			return nil, err
		}
		if msgType != websocket.BinaryMessage {
			t.logger.Debug("skipping non-audio frame", zap.ByteString("payload", data))
			continue
		}
		return data, nil
	}
}

// Send writes one binary frame.
func (t *Transport) Send(frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.isClosed() {
		return net.ErrClosed
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Close sends a close frame and closes the connection. Calls after the first
// are no-ops.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

func (t *Transport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
