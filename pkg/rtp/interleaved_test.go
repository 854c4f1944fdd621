package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleavedFrameRoundTrip(t *testing.T) {
	frame := InterleavedFrame{Channel: 2, Payload: []byte{0x80, 0x60, 0x00, 0x01}}

	data, err := frame.Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte{'$', 2, 0x00, 0x04, 0x80, 0x60, 0x00, 0x01}, data)

	parsed, n, err := ParseInterleavedFrame(append(data, 'R', 'T'))
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, frame, parsed)
	require.False(t, parsed.IsRTCP())
}

func TestInterleavedFrameIncomplete(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{'$'},
		{'$', 1, 0x00},
		{'$', 1, 0x00, 0x03, 0xAA},
	} {
		_, n, err := ParseInterleavedFrame(data)
		require.NoError(t, err)
		require.Equal(t, 0, n)
	}
}

func TestInterleavedFrameBadMagic(t *testing.T) {
	_, _, err := ParseInterleavedFrame([]byte("RTSP/1.0 200 OK\r\n"))
	require.Error(t, err)
}

func TestInterleavedFrameRTCPChannel(t *testing.T) {
	require.True(t, InterleavedFrame{Channel: 3}.IsRTCP())
}

func TestInterleavedFrameTooLarge(t *testing.T) {
	_, err := InterleavedFrame{Payload: make([]byte, 0x10000)}.Marshal()
	require.Error(t, err)
}
