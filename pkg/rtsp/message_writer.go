package rtsp

import (
	"bufio"
	"io"
	"sync"

	"solrtsp/pkg/rtp"
)

// MessageWriter writes built RTSP messages and interleaved frames to a
// connection. Responses and media frames may come from different
// goroutines, so writes are serialized.
type MessageWriter struct {
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewMessageWriter creates a new RTSP message writer
func NewMessageWriter(w io.Writer) *MessageWriter {
	return &MessageWriter{
		writer: bufio.NewWriter(w),
	}
}

// WriteMessage writes one built request or response
func (mw *MessageWriter) WriteMessage(data []byte) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if _, err := mw.writer.Write(data); err != nil {
		return err
	}
	return mw.writer.Flush()
}

// WriteInterleaved writes payload as a '$' framed packet on channel
func (mw *MessageWriter) WriteInterleaved(channel uint8, payload []byte) error {
	data, err := rtp.InterleavedFrame{Channel: channel, Payload: payload}.Marshal()
	if err != nil {
		return err
	}
	return mw.WriteMessage(data)
}
