package rtsp

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solrtsp/pkg/rtp"
)

func startServer(t *testing.T, config RTSPConfig) (*Server, string) {
	t.Helper()

	srv := NewServer(config)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	port := srv.Addr().(*net.TCPAddr).Port
	return srv, fmt.Sprintf("rtsp://127.0.0.1:%d/live/cam", port)
}

func dial(t *testing.T, ctx context.Context, url string) *Client {
	t.Helper()

	c, err := Dial(ctx, url, "test")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testSDP(t *testing.T) []byte {
	t.Helper()

	sdp, err := BuildSDP("cam", "127.0.0.1", []MediaSpec{{Kind: "video", PayloadType: rtp.PayloadTypeH264, RTPMap: "H264/90000"}})
	require.NoError(t, err)
	return sdp
}

func publish(t *testing.T, ctx context.Context, url string, sdp []byte) *Client {
	t.Helper()

	pub := dial(t, ctx, url)
	require.NoError(t, pub.Options(ctx))
	require.NoError(t, pub.Announce(ctx, sdp))
	require.NotEmpty(t, pub.Session())
	require.NoError(t, pub.Setup(ctx, 0))
	require.NoError(t, pub.Record(ctx))
	return pub
}

func TestServerRelayInterleaved(t *testing.T) {
	srv, url := startServer(t, RTSPConfig{Timeout: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sdp := testSDP(t)
	pub := publish(t, ctx, url, sdp)

	stream := srv.Streams().GetStream("live/cam")
	require.NotNil(t, stream)
	require.True(t, stream.IsActive())

	player := dial(t, ctx, url)
	require.NoError(t, player.Options(ctx))
	desc, err := player.Describe(ctx)
	require.NoError(t, err)
	require.Equal(t, sdp, desc)
	require.NoError(t, player.SetupPlay(ctx, 0, "RTP/AVP/TCP;unicast;interleaved=0-1"))
	require.NoError(t, player.Play(ctx))
	require.Equal(t, 1, stream.GetPlayerCount())

	packet := rtp.NewRTPPacket(rtp.PayloadTypeH264, 7, 90000, 0xCAFE, []byte{0x65, 0x01, 0x02})
	require.NoError(t, pub.WritePacket(0, packet))

	frame, err := player.ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, uint8(0), frame.Channel)

	received, err := rtp.ParseRTP(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, uint16(7), received.SequenceNumber)
	require.Equal(t, uint32(0xCAFE), received.SSRC)
	require.Equal(t, []byte{0x65, 0x01, 0x02}, received.Payload)

	require.NoError(t, player.Teardown(ctx))
	require.Eventually(t, func() bool {
		return stream.GetPlayerCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerDescribeUnknownStream(t *testing.T) {
	_, url := startServer(t, RTSPConfig{Timeout: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	player := dial(t, ctx, url)
	_, err := player.Describe(ctx)
	require.ErrorIs(t, err, ErrResponseRejected)
	require.Contains(t, err.Error(), "404")
}

func TestServerSecondPublisherRejected(t *testing.T) {
	_, url := startServer(t, RTSPConfig{Timeout: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sdp := testSDP(t)
	publish(t, ctx, url, sdp)

	second := dial(t, ctx, url)
	err := second.Announce(ctx, sdp)
	require.ErrorIs(t, err, ErrResponseRejected)
	require.Contains(t, err.Error(), "455")
}

func TestServerUDPWithoutTransportRejected(t *testing.T) {
	_, url := startServer(t, RTSPConfig{Timeout: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publish(t, ctx, url, testSDP(t))

	player := dial(t, ctx, url)
	err := player.SetupPlay(ctx, 0, "RTP/AVP;unicast;client_port=5000-5001")
	require.ErrorIs(t, err, ErrResponseRejected)
	require.Contains(t, err.Error(), "461")
}

func TestServerPlayerLimit(t *testing.T) {
	srv, url := startServer(t, RTSPConfig{Timeout: 10, MaxPlayersPerStream: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publish(t, ctx, url, testSDP(t))

	first := dial(t, ctx, url)
	require.NoError(t, first.SetupPlay(ctx, 0, "RTP/AVP/TCP;unicast;interleaved=0-1"))
	require.NoError(t, first.Play(ctx))

	second := dial(t, ctx, url)
	require.NoError(t, second.SetupPlay(ctx, 0, "RTP/AVP/TCP;unicast;interleaved=0-1"))
	err := second.Play(ctx)
	require.ErrorIs(t, err, ErrResponseRejected)
	require.Contains(t, err.Error(), "500")

	require.Equal(t, 1, srv.Streams().GetStream("live/cam").GetPlayerCount())
}

func TestServerMalformedRequestClosesConnection(t *testing.T) {
	srv, _ := startServer(t, RTSPConfig{Timeout: 10})

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("PAUSE rtsp://127.0.0.1/live RTSP/1.0\r\nCSeq: 1\r\n\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "RTSP/1.0 501 Not Implemented\r\n"), string(data))
}

func TestServerSessionTerminatedCleansUp(t *testing.T) {
	srv, url := startServer(t, RTSPConfig{Timeout: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub := publish(t, ctx, url, testSDP(t))
	require.NotNil(t, srv.Streams().GetStream("live/cam"))

	require.NoError(t, pub.Close())
	require.Eventually(t, func() bool {
		return srv.Streams().GetStream("live/cam") == nil
	}, 2*time.Second, 10*time.Millisecond)
}
