package pipeline

// Transport is the telephony side of a call. Receive returns io.EOF once the
// remote end closes. Send is not assumed safe for concurrent use; the
// pipeline serializes every write through one lock per call.
type Transport interface {
	Receive() ([]byte, error)
	Send(frame []byte) error
	Close() error
}
