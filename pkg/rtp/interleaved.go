package rtp

import (
	"encoding/binary"
	"fmt"
)

// InterleavedMagic starts every RTP/RTCP frame carried on the RTSP connection
const InterleavedMagic = '$'

const interleavedHeaderSize = 4

// InterleavedFrame is one '$' framed packet: magic, channel, 16-bit length, payload
type InterleavedFrame struct {
	Channel uint8
	Payload []byte
}

// IsRTCP reports whether the frame uses an odd (RTCP) channel
func (f InterleavedFrame) IsRTCP() bool {
	return f.Channel%2 == 1
}

// Marshal serializes the frame
func (f InterleavedFrame) Marshal() ([]byte, error) {
	if len(f.Payload) > 0xFFFF {
		return nil, fmt.Errorf("interleaved payload too large: %d bytes", len(f.Payload))
	}
	buf := make([]byte, interleavedHeaderSize+len(f.Payload))
	buf[0] = InterleavedMagic
	buf[1] = f.Channel
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(f.Payload)))
	copy(buf[interleavedHeaderSize:], f.Payload)
	return buf, nil
}

// ParseInterleavedFrame reads one frame from the start of data. It returns
// the number of bytes the frame occupies, or 0 when data does not hold the
// whole frame yet.
func ParseInterleavedFrame(data []byte) (InterleavedFrame, int, error) {
	if len(data) == 0 {
		return InterleavedFrame{}, 0, nil
	}
	if data[0] != InterleavedMagic {
		return InterleavedFrame{}, 0, fmt.Errorf("invalid interleaved magic: 0x%02x", data[0])
	}
	if len(data) < interleavedHeaderSize {
		return InterleavedFrame{}, 0, nil
	}
	size := int(binary.BigEndian.Uint16(data[2:4]))
	total := interleavedHeaderSize + size
	if len(data) < total {
		return InterleavedFrame{}, 0, nil
	}
	payload := make([]byte, size)
	copy(payload, data[interleavedHeaderSize:total])
	return InterleavedFrame{Channel: data[1], Payload: payload}, total, nil
}
