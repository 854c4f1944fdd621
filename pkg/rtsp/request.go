package rtsp

import (
	"bytes"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseState is the position of a Request in its parse cycle
type ParseState int

const (
	ParseRequestLine ParseState = iota
	ParseHeaders
	ParseBody
	ParseComplete
)

// String returns the string representation of the parse state
func (s ParseState) String() string {
	switch s {
	case ParseRequestLine:
		return "RequestLine"
	case ParseHeaders:
		return "Headers"
	case ParseBody:
		return "Body"
	case ParseComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// ChannelID is the media track a SETUP request addresses
type ChannelID int

const (
	Channel0 ChannelID = iota
	Channel1
)

const (
	urlScheme  = "rtsp://"
	track1Name = "track1"
)

// URL shapes, tried in order: host:port/suffix, then host/suffix.
var (
	urlWithPort    = regexp.MustCompile(`^([^:]+):(\d+)/(\S+)$`)
	urlWithoutPort = regexp.MustCompile(`^([^/:]+)/(\S+)$`)
)

// Request parses one inbound RTSP request from a receive buffer. A Request
// is owned by a single connection and must not be used concurrently.
type Request struct {
	state     ParseState
	method    Method
	transport TransportMode
	channel   ChannelID
	params    *Params
	accept    bool
	body      []byte
}

// NewRequest creates a request ready to parse a request line
func NewRequest() *Request {
	return &Request{params: NewParams()}
}

// Reset prepares the request for the next message on the connection
func (r *Request) Reset() {
	r.state = ParseRequestLine
	r.method = MethodNone
	r.transport = TransportUnset
	r.channel = Channel0
	r.accept = false
	r.body = nil
	r.params.Reset()
}

// Parse consumes as much of buf as can be parsed. A nil error means the
// bytes seen so far are valid; Complete reports whether the whole request
// has arrived. A buffer starting with '$' is an interleaved frame: the
// method becomes MethodRTCP and nothing is consumed.
func (r *Request) Parse(buf *Buffer) error {
	if data := buf.Peek(); len(data) > 0 && data[0] == '$' {
		r.method = MethodRTCP
		return nil
	}

	var err error
	for {
		switch r.state {
		case ParseRequestLine:
			end := buf.FindCRLF()
			if end < 0 {
				return err
			}
			err = r.parseRequestLine(buf.Peek()[:end])
			buf.RetrieveUntil(end + len(crlf))
			if err != nil {
				return err
			}

		case ParseHeaders:
			block, consumed, terminated := headerBlock(buf)
			if consumed == 0 {
				return nil
			}
			err = r.parseHeaders(block, terminated)
			buf.RetrieveUntil(consumed)
			if err != nil || r.state != ParseBody {
				return err
			}

		case ParseBody:
			n := int(r.params.Number(KeyContentLength))
			if buf.Len() < n {
				return nil
			}
			r.body = append([]byte(nil), buf.Peek()[:n]...)
			buf.RetrieveUntil(n)
			r.state = ParseComplete
			return nil

		case ParseComplete:
			buf.RetrieveAll()
			return nil
		}
	}
}

// headerBlock locates the next header block in buf. When the blank line
// ending the header section has arrived the block runs up to it; otherwise
// it runs up to the last CRLF received so far. consumed is 0 when no
// complete line is available yet.
func headerBlock(buf *Buffer) (block []byte, consumed int, terminated bool) {
	data := buf.Peek()
	if bytes.HasPrefix(data, crlf) {
		return nil, len(crlf), true
	}
	if end := buf.FindHeaderEnd(); end >= 0 {
		return data[:end+len(crlf)], end + len(headerTerm), true
	}
	if end := buf.FindLastCRLF(); end >= 0 {
		return data[:end], end + len(crlf), false
	}
	return nil, 0, false
}

func (r *Request) parseRequestLine(line []byte) error {
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return errors.Wrapf(ErrMalformedRequestLine, "%q", line)
	}
	methodName, url, version := fields[0], fields[1], fields[2]

	r.method = parseMethod(methodName)
	if r.method == MethodNone {
		return errors.Wrapf(ErrMalformedRequestLine, "unknown method %q", methodName)
	}

	ip, port, suffix, ok := splitURL(url)
	if !ok {
		return errors.Wrapf(ErrMalformedRequestLine, "bad url %q", url)
	}

	r.params.Insert(KeyURL, Text(url))
	r.params.Insert(KeyURLIP, Text(ip))
	r.params.Insert(KeyURLPort, Number(uint32(port)))
	r.params.Insert(KeyURLSuffix, Text(suffix))
	r.params.Insert(KeyVersion, Text(version))
	r.params.Insert(KeyMethod, Text(methodName))

	slog.Debug("RTSP request line parsed", "method", methodName, "url", url, "ip", ip, "port", port, "suffix", suffix, "version", version)

	r.state = ParseHeaders
	return nil
}

// splitURL breaks an rtsp:// url into host, port and suffix
func splitURL(url string) (host string, port uint16, suffix string, ok bool) {
	if !strings.HasPrefix(url, urlScheme) {
		return "", 0, "", false
	}
	rest := url[len(urlScheme):]

	if m := urlWithPort.FindStringSubmatch(rest); m != nil {
		p, err := strconv.ParseUint(m[2], 10, 16)
		if err != nil {
			return "", 0, "", false
		}
		return m[1], uint16(p), m[3], true
	}
	if m := urlWithoutPort.FindStringSubmatch(rest); m != nil {
		return m[1], DefaultRTSPPort, m[2], true
	}
	return "", 0, "", false
}

// parseHeaders extracts the fields of one header block. Fields accumulate
// across blocks; the method's required fields are only enforced once the
// block that ends the header section has been seen.
func (r *Request) parseHeaders(block []byte, terminated bool) error {
	message := string(block)
	r.parseCSeq(message)

	switch r.method {
	case MethodDescribe:
		if r.parseAccept(message) {
			r.accept = true
		}
	case MethodSetup:
		if _, ok := fieldLine(message, HeaderTransport); ok && r.transport == TransportUnset {
			if err := r.parseTransport(message); err != nil {
				return err
			}
			r.parseMediaChannel()
		}
	case MethodPlay:
		r.parseSessionID(message)
	case MethodAnnounce:
		r.parseContentLength(message)
	}

	if !terminated {
		return nil
	}

	if !r.params.Has(KeyCSeq) {
		return errors.Wrapf(ErrMalformedHeaderBlock, "%s without CSeq", r.method)
	}

	switch r.method {
	case MethodDescribe:
		if !r.accept {
			return errors.Wrap(ErrMalformedHeaderBlock, "DESCRIBE without Accept: application/sdp")
		}
	case MethodSetup:
		if r.transport == TransportUnset {
			return errors.Wrap(ErrMalformedTransport, "SETUP without Transport")
		}
	case MethodPlay:
		if !r.params.Has(KeySession) {
			return errors.Wrap(ErrMalformedHeaderBlock, "PLAY without Session")
		}
	case MethodAnnounce:
		if r.params.Number(KeyContentLength) > 0 {
			r.state = ParseBody
			return nil
		}
	}

	r.state = ParseComplete
	return nil
}

// fieldNumber reads the unsigned integer at the start of the value of the
// header called name.
func fieldNumber(message, name string, bitSize int) (uint64, bool) {
	line, ok := fieldLine(message, name)
	if !ok {
		return 0, false
	}
	rest := strings.TrimLeft(line[strings.IndexByte(line, ':')+1:], " \t")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, err := strconv.ParseUint(rest[:end], 10, bitSize)
	if err != nil {
		return 0, false
	}
	return n, true
}

// fieldLine returns the first line of message whose header name is name.
// The name must start the line and be followed by optional spaces and ':',
// so Accept does not match Accept-Encoding.
func fieldLine(message, name string) (string, bool) {
	for len(message) > 0 {
		line := message
		if end := strings.Index(message, "\r\n"); end >= 0 {
			line, message = message[:end], message[end+2:]
		} else {
			message = ""
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		if strings.EqualFold(strings.TrimRight(line[:colon], " \t"), name) {
			return line, true
		}
	}
	return "", false
}

func (r *Request) parseCSeq(message string) bool {
	cseq, ok := fieldNumber(message, HeaderCSeq, 32)
	if !ok {
		return false
	}
	r.params.Insert(KeyCSeq, Number(uint32(cseq)))
	return true
}

func (r *Request) parseAccept(message string) bool {
	line, ok := fieldLine(message, HeaderAccept)
	return ok && strings.Contains(line, "sdp")
}

func (r *Request) parseSessionID(message string) bool {
	id, ok := fieldNumber(message, HeaderSession, 32)
	if !ok {
		return false
	}
	r.params.Insert(KeySession, Number(uint32(id)))
	return true
}

func (r *Request) parseContentLength(message string) bool {
	n, ok := fieldNumber(message, HeaderContentLength, 32)
	if !ok {
		return false
	}
	r.params.Insert(KeyContentLength, Number(uint32(n)))
	return true
}

func (r *Request) parseMediaChannel() {
	r.channel = Channel0
	if strings.Contains(r.URLSuffix(), track1Name) {
		r.channel = Channel1
	}
}

// State returns the parse state
func (r *Request) State() ParseState {
	return r.state
}

// Complete reports whether the whole request has been parsed
func (r *Request) Complete() bool {
	return r.state == ParseComplete
}

// Method returns the request method
func (r *Request) Method() Method {
	return r.method
}

// Transport returns the negotiated transport mode
func (r *Request) Transport() TransportMode {
	return r.transport
}

// Channel returns the track addressed by a SETUP request
func (r *Request) Channel() ChannelID {
	return r.channel
}

// Params returns the parameter store
func (r *Request) Params() *Params {
	return r.params
}

// Body returns the ANNOUNCE body
func (r *Request) Body() []byte {
	return r.body
}

// CSeq returns the CSeq sent by the peer
func (r *Request) CSeq() uint32 {
	return r.params.Number(KeyCSeq)
}

// URL returns the request url
func (r *Request) URL() string {
	return r.params.Text(KeyURL)
}

// URLSuffix returns the part of the url after the host
func (r *Request) URLSuffix() string {
	return r.params.Text(KeyURLSuffix)
}

// IP returns the host of the request url
func (r *Request) IP() string {
	return r.params.Text(KeyURLIP)
}

// Port returns the port of the request url
func (r *Request) Port() uint16 {
	return uint16(r.params.Number(KeyURLPort))
}

// SessionID returns the session id sent with PLAY
func (r *Request) SessionID() uint32 {
	return r.params.Number(KeySession)
}

// RTPChannel returns the interleaved RTP channel
func (r *Request) RTPChannel() uint16 {
	return uint16(r.params.Number(KeyRTPChannel))
}

// RTCPChannel returns the interleaved RTCP channel
func (r *Request) RTCPChannel() uint16 {
	return uint16(r.params.Number(KeyRTCPChannel))
}

// RTPPort returns the client RTP port
func (r *Request) RTPPort() uint16 {
	return uint16(r.params.Number(KeyRTPPort))
}

// RTCPPort returns the client RTCP port
func (r *Request) RTCPPort() uint16 {
	return uint16(r.params.Number(KeyRTCPPort))
}
