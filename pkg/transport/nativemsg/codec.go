// Package nativemsg speaks the browser native-messaging protocol over a
// pair of streams: every message is a 32-bit length in native (little
// endian) byte order followed by that many bytes of UTF-8 JSON.
package nativemsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageSize caps inbound frames when no limit is configured.
const DefaultMaxMessageSize = 1 << 20

// ErrMessageTooLarge is returned for frames above the configured limit.
var ErrMessageTooLarge = errors.New("native message too large")

// ReadMessage reads one frame. It returns io.EOF when r ends cleanly
// between frames.
func ReadMessage(r io.Reader, maxSize uint32) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}

	size := binary.LittleEndian.Uint32(header[:])
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return data, nil
}

// WriteMessage writes data as one frame.
func WriteMessage(w io.Writer, data []byte) error {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	frame := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
