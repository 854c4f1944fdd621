package rtsp

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	pionrtp "github.com/pion/rtp"
	"github.com/pkg/errors"

	"solrtsp/pkg/rtp"
)

// Client drives one RTSP connection from the client side. A pusher runs
// OPTIONS, ANNOUNCE, SETUP and RECORD, then writes interleaved packets; a
// player runs OPTIONS, DESCRIBE, SETUP and PLAY, then reads them.
type Client struct {
	conn   net.Conn
	buf    *Buffer
	res    *Response
	writer *MessageWriter
}

// Dial connects to the server named by an rtsp:// url
func Dial(ctx context.Context, rawURL, userAgent string) (*Client, error) {
	host, port, _, ok := splitURL(rawURL)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedRequestLine, "bad url %q", rawURL)
	}

	var d net.Dialer
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "rtsp: dial %s", addr)
	}

	slog.Debug("RTSP client connected", "url", rawURL, "localAddr", conn.LocalAddr())

	return &Client{
		conn:   conn,
		buf:    NewBuffer(nil),
		res:    NewResponse(rawURL, userAgent),
		writer: NewMessageWriter(conn),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Session returns the session id the server assigned, if any
func (c *Client) Session() string {
	return c.res.Session()
}

// Options sends OPTIONS
func (c *Client) Options(ctx context.Context) error {
	return c.do(ctx, c.res.BuildOptionReq())
}

// Describe sends DESCRIBE and returns the session description
func (c *Client) Describe(ctx context.Context) ([]byte, error) {
	if err := c.do(ctx, c.res.BuildDescribeReq()); err != nil {
		return nil, err
	}
	return c.res.Body(), nil
}

// Announce publishes a session description
func (c *Client) Announce(ctx context.Context, sdp []byte) error {
	return c.do(ctx, c.res.BuildAnnounceReq(sdp))
}

// Setup sets up track for recording over interleaved TCP
func (c *Client) Setup(ctx context.Context, track int) error {
	return c.do(ctx, c.res.BuildSetupTCPReq(track))
}

// SetupPlay sets up track for playing with the given Transport value
func (c *Client) SetupPlay(ctx context.Context, track int, transport string) error {
	return c.do(ctx, c.res.BuildSetupPlayReq(track, transport))
}

// Record starts recording
func (c *Client) Record(ctx context.Context) error {
	return c.do(ctx, c.res.BuildRecordReq())
}

// Play starts playing
func (c *Client) Play(ctx context.Context) error {
	return c.do(ctx, c.res.BuildPlayReq())
}

// Teardown ends the session
func (c *Client) Teardown(ctx context.Context) error {
	return c.do(ctx, c.res.BuildTeardownReq())
}

// WritePacket sends an RTP packet of track on its interleaved channel
func (c *Client) WritePacket(track int, packet *pionrtp.Packet) error {
	data, err := rtp.Marshal(packet)
	if err != nil {
		return err
	}
	return c.writer.WriteInterleaved(uint8(track*2), data)
}

// ReadFrame waits for the next interleaved frame
func (c *Client) ReadFrame(ctx context.Context) (rtp.InterleavedFrame, error) {
	for {
		if c.buf.Len() > 0 {
			frame, n, err := rtp.ParseInterleavedFrame(c.buf.Peek())
			if err != nil {
				return rtp.InterleavedFrame{}, err
			}
			if n > 0 {
				c.buf.RetrieveUntil(n)
				return frame, nil
			}
		}
		if err := c.read(ctx); err != nil {
			return rtp.InterleavedFrame{}, err
		}
	}
}

// do writes a request and waits for the response acknowledging it.
// Interleaved frames arriving in between are skipped.
func (c *Client) do(ctx context.Context, request []byte) error {
	method := c.res.Method()
	want := c.res.CSeq() + 1

	if err := c.writer.WriteMessage(request); err != nil {
		return errors.Wrapf(err, "rtsp: write %s", method)
	}

	for {
		progressed, err := c.consume()
		if err != nil {
			return err
		}
		if c.res.CSeq() >= want {
			slog.Debug("RTSP response received", "method", method, "cseq", c.res.CSeq(), "status", c.res.StatusCode())
			return nil
		}
		if !progressed {
			if err := c.read(ctx); err != nil {
				return errors.Wrapf(err, "rtsp: read %s response", method)
			}
		}
	}
}

// consume parses what the buffer holds and reports whether anything was used
func (c *Client) consume() (bool, error) {
	data := c.buf.Peek()
	if len(data) == 0 {
		return false, nil
	}

	if data[0] == rtp.InterleavedMagic {
		_, n, err := rtp.ParseInterleavedFrame(data)
		if err != nil || n == 0 {
			return false, err
		}
		c.buf.RetrieveUntil(n)
		return true, nil
	}

	before := c.buf.Len()
	if err := c.res.Parse(c.buf); err != nil {
		return false, err
	}
	return c.buf.Len() < before, nil
}

func (c *Client) read(ctx context.Context) error {
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	_, err := c.buf.ReadOnce(c.conn)
	return err
}
