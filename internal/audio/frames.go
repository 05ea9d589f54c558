package audio

// FrameSize is 20ms of 16-bit mono PCM at 16kHz, the packet size the
// telephony websocket expects.
const FrameSize = 640

// Chunk splits data into consecutive slices of size bytes. The last slice
// holds the remainder; no empty trailing slice is produced. The returned
// slices alias data.
func Chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		panic("audio: chunk size must be positive")
	}
	if len(data) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[i:end:end])
	}
	return out
}
