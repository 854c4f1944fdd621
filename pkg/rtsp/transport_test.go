package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setupRequest(transport string) string {
	return "SETUP rtsp://10.0.0.1/live/track0 RTSP/1.0\r\nCSeq: 3\r\nTransport: " + transport + "\r\n\r\n"
}

func TestParseTransport(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		mode      TransportMode
		rtp, rtcp uint16
	}{
		{"tcp record", "RTP/AVP/TCP;unicast;mode=record;interleaved=2-3", RTPOverTCP, 2, 3},
		{"tcp", "RTP/AVP/TCP;unicast;interleaved=0-1", RTPOverTCP, 0, 1},
		{"udp", "RTP/AVP;unicast;client_port=5000-5001", RTPOverUDP, 5000, 5001},
		{"udp with profile suffix", "RTP/AVP/UDP;unicast;client_port=6970-6971", RTPOverUDP, 6970, 6971},
		{"multicast", "RTP/AVP;multicast", RTPOverMulticast, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := parseAll(t, setupRequest(tt.transport))

			require.True(t, req.Complete())
			require.Equal(t, tt.mode, req.Transport())
			switch tt.mode {
			case RTPOverTCP:
				require.Equal(t, tt.rtp, req.RTPChannel())
				require.Equal(t, tt.rtcp, req.RTCPChannel())
			default:
				require.Equal(t, tt.rtp, req.RTPPort())
				require.Equal(t, tt.rtcp, req.RTCPPort())
			}
		})
	}
}

func TestParseTransportErrors(t *testing.T) {
	for _, transport := range []string{
		"RTP/AVP/TCP;unicast",
		"RTP/AVP;unicast",
		"RTP/AVP;unicast;client_port=70000-70001",
		"RAW/RAW/UDP;unicast;client_port=5000-5001",
		"RTP/AVP;client_port=5000-5001",
	} {
		req := NewRequest()
		err := req.Parse(NewBuffer([]byte(setupRequest(transport))))
		require.ErrorIs(t, err, ErrMalformedTransport, transport)
		require.Equal(t, StatusUnsupportedTransport, StatusFor(err, req.Method()), transport)
	}
}

func TestParseSetupWithoutTransport(t *testing.T) {
	req := NewRequest()
	err := req.Parse(NewBuffer([]byte("SETUP rtsp://10.0.0.1/live/track0 RTSP/1.0\r\nCSeq: 3\r\n\r\n")))
	require.ErrorIs(t, err, ErrMalformedTransport)
}

func TestTransportModeString(t *testing.T) {
	require.Equal(t, "RTP/TCP", RTPOverTCP.String())
	require.Equal(t, "RTP/UDP", RTPOverUDP.String())
	require.Equal(t, "RTP/Multicast", RTPOverMulticast.String())
	require.Equal(t, "Unset", TransportUnset.String())
}
