package rtsp

import (
	"bytes"
	"fmt"
)

// Server side: responses to a parsed Request. Each builder returns a newly
// allocated message; the CSeq is the one recorded from the request.

// BuildOptionRes builds the OPTIONS response
func (r *Request) BuildOptionRes() []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderPublic, supportedMethods)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildDescribeRes builds the DESCRIBE response carrying sdp
func (r *Request) BuildDescribeRes(sdp []byte) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderContentLength, len(sdp))
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderContentType, ContentTypeSDP)
	b.WriteString("\r\n")
	b.Write(sdp)
	return b.Bytes()
}

// BuildSetupMulticastRes answers a multicast SETUP with the group address
// and port; the source is the host the client addressed.
func (r *Request) BuildSetupMulticastRes(multicastIP string, port uint16, sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %s;%s;destination=%s;source=%s;port=%d-0;ttl=255\r\n",
		HeaderTransport, TransportRTPUDP, TransportMulticast, multicastIP, r.IP(), port)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderSession, sessionID)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildSetupTCPRes answers an interleaved SETUP
func (r *Request) BuildSetupTCPRes(rtpChannel, rtcpChannel uint16, sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %s;%s;interleaved=%d-%d\r\n",
		HeaderTransport, TransportRTPTCP, TransportUnicast, rtpChannel, rtcpChannel)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderSession, sessionID)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildSetupUDPRes answers a UDP unicast SETUP, echoing the client ports
func (r *Request) BuildSetupUDPRes(serverRTPPort, serverRTCPPort uint16, sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %s;%s;client_port=%d-%d;server_port=%d-%d\r\n",
		HeaderTransport, TransportRTPUDP, TransportUnicast,
		r.RTPPort(), r.RTCPPort(), serverRTPPort, serverRTCPPort)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderSession, sessionID)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildPlayRes builds the PLAY response. rtpInfo, when not empty, is
// written as an extra header line.
func (r *Request) BuildPlayRes(rtpInfo string, sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: npt=0.000-\r\n", HeaderRange)
	fmt.Fprintf(&b, "%s: %d; timeout=%d\r\n", HeaderSession, sessionID, DefaultTimeout)
	if rtpInfo != "" {
		fmt.Fprintf(&b, "%s\r\n", rtpInfo)
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildTeardownRes builds the TEARDOWN response
func (r *Request) BuildTeardownRes(sessionID uint32) []byte {
	return r.buildSessionRes(sessionID)
}

// BuildGetParameterRes builds the GET_PARAMETER response
func (r *Request) BuildGetParameterRes(sessionID uint32) []byte {
	return r.buildSessionRes(sessionID)
}

// BuildAnnounceRes builds the ANNOUNCE response
func (r *Request) BuildAnnounceRes(sessionID uint32) []byte {
	return r.buildSessionRes(sessionID)
}

// BuildRecordRes builds the RECORD response
func (r *Request) BuildRecordRes(sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: npt=0.000-\r\n", HeaderRange)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderSession, sessionID)
	b.WriteString("\r\n")
	return b.Bytes()
}

func (r *Request) buildSessionRes(sessionID uint32) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, StatusOK)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderSession, sessionID)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildNotFoundRes builds 404 Stream Not Found
func (r *Request) BuildNotFoundRes() []byte {
	return r.BuildStatusRes(StatusNotFound)
}

// BuildServerErrorRes builds 500 Internal Server Error
func (r *Request) BuildServerErrorRes() []byte {
	return r.BuildStatusRes(StatusInternalServerError)
}

// BuildUnsupportedRes builds 461 Unsupported transport
func (r *Request) BuildUnsupportedRes() []byte {
	return r.BuildStatusRes(StatusUnsupportedTransport)
}

// BuildNotImplementedRes builds 501 Not Implemented
func (r *Request) BuildNotImplementedRes() []byte {
	return r.BuildStatusRes(StatusNotImplemented)
}

// BuildStatusRes builds a header-only response with the given status
func (r *Request) BuildStatusRes(statusCode int) []byte {
	var b bytes.Buffer
	writeStatusLine(&b, statusCode)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.CSeq())
	b.WriteString("\r\n")
	return b.Bytes()
}

func writeStatusLine(b *bytes.Buffer, statusCode int) {
	fmt.Fprintf(b, "%s %d %s\r\n", RTSPVersion, statusCode, StatusText(statusCode))
}

// Client side: requests issued through a Response. Each builder uses the
// next CSeq and records its method so the following response can be
// matched to it.

// BuildOptionReq builds an OPTIONS request
func (r *Response) BuildOptionReq() []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodOptions, r.url)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildDescribeReq builds a DESCRIBE request
func (r *Response) BuildDescribeReq() []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodDescribe, r.url)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderAccept, ContentTypeSDP)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildAnnounceReq builds an ANNOUNCE request carrying sdp
func (r *Response) BuildAnnounceReq(sdp []byte) []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodAnnounce, r.url)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderContentType, ContentTypeSDP)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderContentLength, len(sdp))
	b.WriteString("\r\n")
	b.Write(sdp)
	return b.Bytes()
}

// BuildSetupTCPReq builds a record-mode interleaved SETUP for trackID.
// Track 0 uses channels 0-1, track 1 uses 2-3.
func (r *Response) BuildSetupTCPReq(trackID int) []byte {
	rtpChannel, rtcpChannel := 0, 1
	if trackID == 1 {
		rtpChannel, rtcpChannel = 2, 3
	}

	var b bytes.Buffer
	r.writeRequestLine(&b, MethodSetup, fmt.Sprintf("%s/track%d", r.url, trackID))
	fmt.Fprintf(&b, "%s: %s;%s;mode=record;interleaved=%d-%d\r\n",
		HeaderTransport, TransportRTPTCP, TransportUnicast, rtpChannel, rtcpChannel)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildSetupPlayReq builds a play-mode SETUP for trackID with the given
// transport value
func (r *Response) BuildSetupPlayReq(trackID int, transport string) []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodSetup, fmt.Sprintf("%s/track%d", r.url, trackID))
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderTransport, transport)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildRecordReq builds a RECORD request
func (r *Response) BuildRecordReq() []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodRecord, r.url)
	fmt.Fprintf(&b, "%s: npt=0.000-\r\n", HeaderRange)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildPlayReq builds a PLAY request
func (r *Response) BuildPlayReq() []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodPlay, r.url)
	fmt.Fprintf(&b, "%s: npt=0.000-\r\n", HeaderRange)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// BuildTeardownReq builds a TEARDOWN request
func (r *Response) BuildTeardownReq() []byte {
	var b bytes.Buffer
	r.writeRequestLine(&b, MethodTeardown, r.url)
	fmt.Fprintf(&b, "%s: %d\r\n", HeaderCSeq, r.cseq+1)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderUserAgent, r.userAgent)
	r.writeSession(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

func (r *Response) writeRequestLine(b *bytes.Buffer, method Method, url string) {
	fmt.Fprintf(b, "%s %s %s\r\n", method, url, RTSPVersion)
	r.method = method
}

// writeSession writes the Session header once the server has assigned one
func (r *Response) writeSession(b *bytes.Buffer) {
	if r.session != "" {
		fmt.Fprintf(b, "%s: %s\r\n", HeaderSession, r.session)
	}
}
