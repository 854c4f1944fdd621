package rtsp

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Response tracks the client side of an RTSP exchange: it builds the next
// request and parses the response to it. CSeq holds the last acknowledged
// sequence number; requests are sent with CSeq+1.
type Response struct {
	method     Method
	cseq       uint32
	session    string
	url        string
	userAgent  string
	statusCode int
	body       []byte
}

// NewResponse creates a response tracker for requests to url
func NewResponse(url, userAgent string) *Response {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Response{
		url:       url,
		userAgent: userAgent,
	}
}

// Parse recognises one complete response in buf. It returns nil without
// consuming anything until the header section (and any Content-Length
// body) has arrived. A response without "OK" is consumed and reported as
// ErrResponseRejected; the connection is expected to be closed.
func (r *Response) Parse(buf *Buffer) error {
	end := buf.FindHeaderEnd()
	if end < 0 {
		return nil
	}
	data := buf.Peek()
	head := data[:end+len(headerTerm)]

	bodyLen := 0
	if n, ok := fieldNumber(string(head), HeaderContentLength, 32); ok {
		bodyLen = int(n)
	}
	total := len(head) + bodyLen
	if len(data) < total {
		return nil
	}

	r.statusCode = parseStatusCode(head)
	if !bytes.Contains(head, []byte("OK")) {
		buf.RetrieveUntil(total)
		return errors.Wrapf(ErrResponseRejected, "%s answered with status %d", r.method, r.statusCode)
	}

	if session, ok := sessionValue(string(head)); ok {
		r.session = session
	}
	r.body = append([]byte(nil), data[len(head):total]...)
	r.cseq++

	buf.RetrieveUntil(total)
	return nil
}

// parseStatusCode reads the code out of "RTSP/1.0 200 OK"
func parseStatusCode(head []byte) int {
	line := head
	if i := bytes.Index(head, crlf); i >= 0 {
		line = head[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return 0
	}
	code, _ := strconv.Atoi(fields[1])
	return code
}

// sessionValue returns the Session header value up to whitespace or ';'
func sessionValue(head string) (string, bool) {
	line, ok := fieldLine(head, HeaderSession)
	if !ok {
		return "", false
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", false
	}
	value := strings.TrimLeft(line[colon+1:], " \t")
	if end := strings.IndexAny(value, " \t;"); end >= 0 {
		value = value[:end]
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// Method returns the method of the last request built
func (r *Response) Method() Method {
	return r.method
}

// CSeq returns the last acknowledged sequence number
func (r *Response) CSeq() uint32 {
	return r.cseq
}

// Session returns the session id announced by the server
func (r *Response) Session() string {
	return r.session
}

// URL returns the target url
func (r *Response) URL() string {
	return r.url
}

// UserAgent returns the User-Agent sent with every request
func (r *Response) UserAgent() string {
	return r.userAgent
}

// StatusCode returns the status code of the last parsed response
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Body returns the body of the last accepted response
func (r *Response) Body() []byte {
	return r.body
}
