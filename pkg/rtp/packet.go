package rtp

import (
	"fmt"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// Constants for RTP
const (
	MinRTPHeaderSize = 12   // Minimum RTP header size in bytes
	MaxRTPPacketSize = 1500 // Maximum RTP packet size (MTU)
)

// Common payload types
const (
	PayloadTypeH264 = 96 // H.264 (dynamic)
	PayloadTypeAAC  = 97 // AAC (dynamic)
)

// NewRTPPacket creates a version 2 RTP packet
func NewRTPPacket(payloadType uint8, sequenceNumber uint16, timestamp uint32, ssrc uint32, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: sequenceNumber,
			Timestamp:      timestamp,
			SSRC:           ssrc,
		},
		Payload: payload,
	}
}

// Marshal serializes an RTP packet, rejecting packets larger than the MTU
func Marshal(p *rtp.Packet) ([]byte, error) {
	if size := p.MarshalSize(); size > MaxRTPPacketSize {
		return nil, fmt.Errorf("RTP packet too large: %d bytes (max: %d)", size, MaxRTPPacketSize)
	}
	return p.Marshal()
}

// ParseRTP deserializes an RTP packet received from a publisher
func ParseRTP(data []byte) (*rtp.Packet, error) {
	if len(data) < MinRTPHeaderSize {
		return nil, fmt.Errorf("RTP packet too short: %d bytes (min: %d)", len(data), MinRTPHeaderSize)
	}
	p := &rtp.Packet{}
	if err := p.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	return p, nil
}

// ParseRTCP deserializes a compound RTCP packet
func ParseRTCP(data []byte) ([]rtcp.Packet, error) {
	packets, err := rtcp.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal RTCP packet: %w", err)
	}
	return packets, nil
}

// DescribeRTCP summarises RTCP packets for logging
func DescribeRTCP(packets []rtcp.Packet) []string {
	out := make([]string, 0, len(packets))
	for _, p := range packets {
		out = append(out, fmt.Sprintf("%T ssrc=%v", p, p.DestinationSSRC()))
	}
	return out
}
