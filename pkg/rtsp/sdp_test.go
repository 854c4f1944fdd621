package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSDP(t *testing.T) {
	data, err := BuildSDP("cam", "127.0.0.1", []MediaSpec{
		{Kind: "video", PayloadType: 96, RTPMap: "H264/90000"},
		{Kind: "audio", PayloadType: 97, RTPMap: "MPEG4-GENERIC/44100/2"},
	})
	require.NoError(t, err)
	require.Contains(t, string(data), "a=control:track0\r\n")
	require.Contains(t, string(data), "a=control:track1\r\n")
	require.Contains(t, string(data), "a=rtpmap:96 H264/90000\r\n")

	tracks, err := ValidateSDP(data)
	require.NoError(t, err)
	require.Equal(t, 2, tracks)
}

func TestValidateSDPErrors(t *testing.T) {
	_, err := ValidateSDP([]byte("hello"))
	require.Error(t, err)

	_, err = ValidateSDP([]byte("v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"))
	require.Error(t, err)
}
