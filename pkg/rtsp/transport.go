package rtsp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TransportMode is the media delivery agreed by SETUP
type TransportMode int

const (
	TransportUnset TransportMode = iota
	RTPOverTCP
	RTPOverUDP
	RTPOverMulticast
)

// String returns the string representation of the transport mode
func (m TransportMode) String() string {
	switch m {
	case RTPOverTCP:
		return "RTP/TCP"
	case RTPOverUDP:
		return "RTP/UDP"
	case RTPOverMulticast:
		return "RTP/Multicast"
	default:
		return "Unset"
	}
}

// numberPair matches a transport parameter such as interleaved=0-1 or client_port=5000-5001
var numberPair = regexp.MustCompile(`^[^=]+=(\d+)-(\d+)$`)

// parseTransport reads the Transport header out of a header block.
// RTP/AVP/TCP is checked before RTP/AVP because the latter is a prefix of
// the former; delivery keywords are searched after the matched specifier.
func (r *Request) parseTransport(message string) error {
	line, ok := fieldLine(message, HeaderTransport)
	if !ok {
		return errors.Wrap(ErrMalformedTransport, "no Transport header")
	}

	if pos := strings.Index(line, TransportRTPTCP); pos >= 0 {
		rtpChannel, rtcpChannel, ok := transportPair(line[pos:])
		if !ok {
			return errors.Wrapf(ErrMalformedTransport, "no interleaved channels in %q", line)
		}
		r.setTransport(RTPOverTCP)
		r.params.Insert(KeyRTPChannel, Number(uint32(rtpChannel)))
		r.params.Insert(KeyRTCPChannel, Number(uint32(rtcpChannel)))
		return nil
	}

	pos := strings.Index(line, TransportRTPUDP)
	if pos < 0 {
		return errors.Wrapf(ErrMalformedTransport, "unknown transport %q", line)
	}
	spec := line[pos:]

	var rtpPort, rtcpPort uint16
	switch {
	case strings.Contains(spec, TransportUnicast):
		if rtpPort, rtcpPort, ok = transportPair(spec); !ok {
			return errors.Wrapf(ErrMalformedTransport, "no client ports in %q", line)
		}
		r.setTransport(RTPOverUDP)
	case strings.Contains(spec, TransportMulticast):
		r.setTransport(RTPOverMulticast)
	default:
		return errors.Wrapf(ErrMalformedTransport, "neither unicast nor multicast in %q", line)
	}

	r.params.Insert(KeyRTPPort, Number(uint32(rtpPort)))
	r.params.Insert(KeyRTCPPort, Number(uint32(rtcpPort)))
	return nil
}

// setTransport records the mode once; a later negotiation never overrides it
func (r *Request) setTransport(mode TransportMode) {
	if r.transport == TransportUnset {
		r.transport = mode
	}
}

// transportPair returns the first a-b pair of 16-bit numbers among the
// semicolon separated parameters of a transport spec.
func transportPair(spec string) (uint16, uint16, bool) {
	for _, field := range strings.Split(spec, ";") {
		m := numberPair.FindStringSubmatch(strings.TrimSpace(field))
		if m == nil {
			continue
		}
		first, err := strconv.ParseUint(m[1], 10, 16)
		if err != nil {
			return 0, 0, false
		}
		second, err := strconv.ParseUint(m[2], 10, 16)
		if err != nil {
			return 0, 0, false
		}
		return uint16(first), uint16(second), true
	}
	return 0, 0, false
}
