package rtsp

// Method is an RTSP request method recognised by the request parser
type Method int

const (
	MethodNone Method = iota
	MethodOptions
	MethodDescribe
	MethodSetup
	MethodPlay
	MethodTeardown
	MethodGetParameter
	MethodAnnounce
	MethodRecord
	// MethodRTCP marks a buffer that starts with an interleaved binary frame ('$')
	MethodRTCP
)

var methodNames = map[Method]string{
	MethodOptions:      "OPTIONS",
	MethodDescribe:     "DESCRIBE",
	MethodSetup:        "SETUP",
	MethodPlay:         "PLAY",
	MethodTeardown:     "TEARDOWN",
	MethodGetParameter: "GET_PARAMETER",
	MethodAnnounce:     "ANNOUNCE",
	MethodRecord:       "RECORD",
	MethodRTCP:         "RTCP",
}

// String returns the wire name of the method
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "NONE"
}

// parseMethod matches a request-line token case-sensitively
func parseMethod(token string) Method {
	for m, name := range methodNames {
		if m != MethodRTCP && name == token {
			return m
		}
	}
	return MethodNone
}

// RTSP Status Codes
const (
	StatusOK                        = 200
	StatusBadRequest                = 400
	StatusNotFound                  = 404
	StatusMethodNotAllowed          = 405
	StatusSessionNotFound           = 454
	StatusMethodNotValidInThisState = 455
	StatusUnsupportedTransport      = 461
	StatusInternalServerError       = 500
	StatusNotImplemented            = 501
)

// StatusText returns the reason phrase written for a status code
func StatusText(statusCode int) string {
	switch statusCode {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Stream Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusSessionNotFound:
		return "Session Not Found"
	case StatusMethodNotValidInThisState:
		return "Method Not Valid in This State"
	case StatusUnsupportedTransport:
		return "Unsupported transport"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	default:
		return "Unknown"
	}
}

// RTSP Headers
const (
	HeaderAccept        = "Accept"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderCSeq          = "CSeq"
	HeaderPublic        = "Public"
	HeaderRange         = "Range"
	HeaderRTPInfo       = "RTP-Info"
	HeaderSession       = "Session"
	HeaderTransport     = "Transport"
	HeaderUserAgent     = "User-Agent"
)

// Transport specifiers and delivery keywords
const (
	TransportRTPUDP    = "RTP/AVP"
	TransportRTPTCP    = "RTP/AVP/TCP"
	TransportUnicast   = "unicast"
	TransportMulticast = "multicast"
)

// RTSP Version
const RTSPVersion = "RTSP/1.0"

// Default Values
const (
	DefaultRTSPPort  = 554
	DefaultTimeout   = 60 // seconds
	DefaultUserAgent = "Sol RTSP Client"
	ContentTypeSDP   = "application/sdp"
)

// supportedMethods is advertised in the Public header of OPTIONS responses
const supportedMethods = "OPTIONS, DESCRIBE, SETUP, TEARDOWN, PLAY, GET_PARAMETER, ANNOUNCE, RECORD"

var (
	crlf       = []byte("\r\n")
	headerTerm = []byte("\r\n\r\n")
)
