package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseParseOK(t *testing.T) {
	res := NewResponse("rtsp://10.0.0.1/live", "")
	buf := NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 2\r\nSession: 12345ABC\r\n\r\n"))

	require.NoError(t, res.Parse(buf))
	require.Equal(t, uint32(1), res.CSeq())
	require.Equal(t, "12345ABC", res.Session())
	require.Equal(t, StatusOK, res.StatusCode())
	require.Equal(t, 0, buf.Len())
	require.Equal(t, DefaultUserAgent, res.UserAgent())
}

func TestResponseParseRejected(t *testing.T) {
	res := NewResponse("rtsp://10.0.0.1/live", "agent")
	buf := NewBuffer([]byte("RTSP/1.0 454 Session Not Found\r\n\r\n"))

	err := res.Parse(buf)
	require.ErrorIs(t, err, ErrResponseRejected)
	require.Equal(t, StatusSessionNotFound, res.StatusCode())
	require.Equal(t, uint32(0), res.CSeq())
	require.Equal(t, 0, buf.Len())
}

func TestResponseParseIncomplete(t *testing.T) {
	res := NewResponse("rtsp://10.0.0.1/live", "agent")
	buf := NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 2\r\n"))

	require.NoError(t, res.Parse(buf))
	require.Equal(t, uint32(0), res.CSeq())
	require.Equal(t, 26, buf.Len())

	buf.Write([]byte("\r\n"))
	require.NoError(t, res.Parse(buf))
	require.Equal(t, uint32(1), res.CSeq())
}

func TestResponseParseBody(t *testing.T) {
	const sdp = "v=0\r\ns=live\r\n"
	res := NewResponse("rtsp://10.0.0.1/live", "agent")
	buf := NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 1\r\nContent-Type: application/sdp\r\nContent-Length: 13\r\n\r\nv=0\r\n"))

	require.NoError(t, res.Parse(buf))
	require.Equal(t, uint32(0), res.CSeq())

	buf.Write([]byte("s=live\r\n"))
	require.NoError(t, res.Parse(buf))
	require.Equal(t, uint32(1), res.CSeq())
	require.Equal(t, sdp, string(res.Body()))
}

func TestResponseSessionTimeoutSuffix(t *testing.T) {
	res := NewResponse("rtsp://10.0.0.1/live", "agent")
	require.NoError(t, res.Parse(NewBuffer([]byte("RTSP/1.0 200 OK\r\nCSeq: 1\r\nSession: 987654; timeout=60\r\n\r\n"))))
	require.Equal(t, "987654", res.Session())

	// the session id is echoed in later requests
	require.Contains(t, string(res.BuildPlayReq()), "\r\nSession: 987654\r\n")
}
