package rtsp

import "github.com/pkg/errors"

// Parse failures. Callers classify them with errors.Is; the wrapped message
// carries the offending token.
var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMalformedHeaderBlock = errors.New("malformed header block")
	ErrMalformedTransport   = errors.New("malformed transport")
	ErrResponseRejected     = errors.New("response rejected")
)

// StatusFor maps a request parse failure to the status code of the error
// response the server sends before closing the connection.
func StatusFor(err error, method Method) int {
	switch {
	case errors.Is(err, ErrMalformedRequestLine) && method == MethodNone:
		return StatusNotImplemented
	case errors.Is(err, ErrMalformedTransport):
		return StatusUnsupportedTransport
	default:
		return StatusInternalServerError
	}
}
