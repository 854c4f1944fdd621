package rtsp

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/headers"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, data []byte) *base.Response {
	t.Helper()
	var res base.Response
	require.NoError(t, res.Unmarshal(bufio.NewReader(bytes.NewReader(data))))
	return &res
}

func decodeRequest(t *testing.T, data []byte) *base.Request {
	t.Helper()
	var req base.Request
	require.NoError(t, req.Unmarshal(bufio.NewReader(bytes.NewReader(data))))
	return &req
}

func TestBuildOptionRes(t *testing.T) {
	req := parseAll(t, "OPTIONS rtsp://10.0.0.1/live RTSP/1.0\r\nCSeq: 5\r\n\r\n")
	out := req.BuildOptionRes()

	require.Equal(t, 1, strings.Count(string(out), "\r\nCSeq: 5\r\n"))
	require.True(t, bytes.HasSuffix(out, []byte("\r\n\r\n")))
	require.Contains(t, string(out), "Public: "+supportedMethods+"\r\n")

	res := decodeResponse(t, out)
	require.Equal(t, base.StatusOK, res.StatusCode)
	require.Equal(t, base.HeaderValue{"5"}, res.Header["CSeq"])
	for _, m := range []string{"OPTIONS", "DESCRIBE", "SETUP", "TEARDOWN", "PLAY", "GET_PARAMETER", "ANNOUNCE", "RECORD"} {
		require.Contains(t, res.Header["Public"][0], m)
	}
}

func TestBuildDescribeRes(t *testing.T) {
	req := parseAll(t, "DESCRIBE rtsp://10.0.0.1/live RTSP/1.0\r\nCSeq: 2\r\nAccept: application/sdp\r\n\r\n")
	sdp := []byte("v=0\r\no=- 0 0 IN IP4 10.0.0.1\r\ns=live\r\nt=0 0\r\nm=video 0 RTP/AVP 96\r\n")
	out := req.BuildDescribeRes(sdp)

	require.Contains(t, string(out), fmt.Sprintf("Content-Length: %d\r\n", len(sdp)))
	require.True(t, bytes.HasSuffix(out, sdp))

	res := decodeResponse(t, out)
	require.Equal(t, sdp, res.Body)
	require.Equal(t, base.HeaderValue{ContentTypeSDP}, res.Header["Content-Type"])
}

func TestBuildSetupRes(t *testing.T) {
	t.Run("tcp", func(t *testing.T) {
		req := parseAll(t, setupRequest("RTP/AVP/TCP;unicast;interleaved=2-3"))
		res := decodeResponse(t, req.BuildSetupTCPRes(req.RTPChannel(), req.RTCPChannel(), 1234))

		var th headers.Transport
		require.NoError(t, th.Unmarshal(res.Header["Transport"]))
		require.Equal(t, headers.TransportProtocolTCP, th.Protocol)
		require.Equal(t, &[2]int{2, 3}, th.InterleavedIDs)
		require.Equal(t, base.HeaderValue{"1234"}, res.Header["Session"])
	})

	t.Run("udp", func(t *testing.T) {
		req := parseAll(t, setupRequest("RTP/AVP;unicast;client_port=5000-5001"))
		res := decodeResponse(t, req.BuildSetupUDPRes(6970, 6971, 1234))

		var th headers.Transport
		require.NoError(t, th.Unmarshal(res.Header["Transport"]))
		require.Equal(t, headers.TransportProtocolUDP, th.Protocol)
		require.Equal(t, &[2]int{5000, 5001}, th.ClientPorts)
		require.Equal(t, &[2]int{6970, 6971}, th.ServerPorts)
	})

	t.Run("multicast", func(t *testing.T) {
		req := parseAll(t, setupRequest("RTP/AVP;multicast"))
		out := req.BuildSetupMulticastRes("239.0.0.1", 5004, 1234)
		require.Contains(t, string(out),
			"Transport: RTP/AVP;multicast;destination=239.0.0.1;source=10.0.0.1;port=5004-0;ttl=255\r\n")

		res := decodeResponse(t, out)
		require.Equal(t, base.StatusOK, res.StatusCode)
	})
}

func TestBuildPlayRes(t *testing.T) {
	req := parseAll(t, "PLAY rtsp://10.0.0.1/live RTSP/1.0\r\nCSeq: 6\r\nSession: 77\r\n\r\n")
	out := req.BuildPlayRes("RTP-Info: url=rtsp://10.0.0.1/live;seq=0;rtptime=0", 77)

	require.Contains(t, string(out), "Range: npt=0.000-\r\n")
	require.Contains(t, string(out), "Session: 77; timeout=60\r\n")

	res := decodeResponse(t, out)
	require.Equal(t, base.HeaderValue{"77; timeout=60"}, res.Header["Session"])
	require.Contains(t, string(out), "\r\nRTP-Info: url=rtsp://10.0.0.1/live;seq=0;rtptime=0\r\n\r\n")
}

func TestBuildSessionResponses(t *testing.T) {
	req := parseAll(t, "TEARDOWN rtsp://10.0.0.1/live RTSP/1.0\r\nCSeq: 9\r\n\r\n")

	for _, out := range [][]byte{
		req.BuildTeardownRes(55),
		req.BuildGetParameterRes(55),
		req.BuildAnnounceRes(55),
		req.BuildRecordRes(55),
	} {
		require.NotContains(t, string(out), "timeout=")
		res := decodeResponse(t, out)
		require.Equal(t, base.HeaderValue{"9"}, res.Header["CSeq"])
		require.Equal(t, base.HeaderValue{"55"}, res.Header["Session"])
	}
}

func TestBuildErrorResponses(t *testing.T) {
	req := parseAll(t, "DESCRIBE rtsp://10.0.0.1/missing RTSP/1.0\r\nCSeq: 3\r\nAccept: application/sdp\r\n\r\n")

	tests := []struct {
		out  []byte
		line string
	}{
		{req.BuildNotFoundRes(), "RTSP/1.0 404 Stream Not Found\r\n"},
		{req.BuildServerErrorRes(), "RTSP/1.0 500 Internal Server Error\r\n"},
		{req.BuildUnsupportedRes(), "RTSP/1.0 461 Unsupported transport\r\n"},
		{req.BuildNotImplementedRes(), "RTSP/1.0 501 Not Implemented\r\n"},
	}
	for _, tt := range tests {
		require.True(t, bytes.HasPrefix(tt.out, []byte(tt.line)), string(tt.out))
		require.Contains(t, string(tt.out), "CSeq: 3\r\n")
	}
}

func TestBuildClientRequests(t *testing.T) {
	const url = "rtsp://10.0.0.1:8554/live"
	res := NewResponse(url, "agent")

	out := res.BuildOptionReq()
	require.Equal(t, MethodOptions, res.Method())
	req := decodeRequest(t, out)
	require.Equal(t, base.Options, req.Method)
	require.Equal(t, base.HeaderValue{"1"}, req.Header["CSeq"])
	require.Equal(t, base.HeaderValue{"agent"}, req.Header["User-Agent"])
	require.NotContains(t, string(out), "Session")

	// the counter only advances with an accepted response
	require.Contains(t, string(res.BuildDescribeReq()), "CSeq: 1\r\n")
	require.NoError(t, res.Parse(NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 1\r\n\r\n"))))

	sdp := []byte("v=0\r\ns=live\r\n")
	req = decodeRequest(t, res.BuildAnnounceReq(sdp))
	require.Equal(t, base.Announce, req.Method)
	require.Equal(t, base.HeaderValue{"2"}, req.Header["CSeq"])
	require.Equal(t, sdp, req.Body)
	require.NoError(t, res.Parse(NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 2\r\nSession: 31\r\n\r\n"))))

	req = decodeRequest(t, res.BuildSetupTCPReq(1))
	require.Equal(t, base.Setup, req.Method)
	require.Equal(t, url+"/track1", req.URL.String())
	require.Equal(t, base.HeaderValue{"31"}, req.Header["Session"])

	var th headers.Transport
	require.NoError(t, th.Unmarshal(req.Header["Transport"]))
	require.Equal(t, &[2]int{2, 3}, th.InterleavedIDs)
	require.NotNil(t, th.Mode)
	require.Equal(t, headers.TransportModeRecord, *th.Mode)

	req = decodeRequest(t, res.BuildRecordReq())
	require.Equal(t, base.Record, req.Method)
	require.Equal(t, base.HeaderValue{"npt=0.000-"}, req.Header["Range"])

	req = decodeRequest(t, res.BuildTeardownReq())
	require.Equal(t, base.Teardown, req.Method)
	require.Equal(t, MethodTeardown, res.Method())
}

func TestBuildSetupPlayReqRoundTrip(t *testing.T) {
	res := NewResponse("rtsp://10.0.0.1/live", "agent")
	buf := NewBuffer(res.BuildSetupPlayReq(1, "RTP/AVP;unicast;client_port=5000-5001"))

	req := NewRequest()
	require.NoError(t, req.Parse(buf))
	require.True(t, req.Complete())
	require.Equal(t, RTPOverUDP, req.Transport())
	require.Equal(t, Channel1, req.Channel())
	require.Equal(t, uint16(5000), req.RTPPort())
	require.Equal(t, uint32(1), req.CSeq())
}
