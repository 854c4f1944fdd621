package rtp

import (
	"strings"
	"testing"

	"github.com/pion/rtcp"
)

func TestRTPPacketMarshalParse(t *testing.T) {
	payload := []byte("Hello, RTP!")

	packet := NewRTPPacket(PayloadTypeH264, 12345, 98765432, 0x12345678, payload)
	packet.Marker = true

	data, err := Marshal(packet)
	if err != nil {
		t.Fatalf("Failed to marshal RTP packet: %v", err)
	}

	packet2, err := ParseRTP(data)
	if err != nil {
		t.Fatalf("Failed to parse RTP packet: %v", err)
	}

	if packet2.Version != 2 {
		t.Errorf("Expected version 2, got %d", packet2.Version)
	}

	if packet2.PayloadType != PayloadTypeH264 {
		t.Errorf("Expected payload type %d, got %d", PayloadTypeH264, packet2.PayloadType)
	}

	if packet2.SequenceNumber != 12345 {
		t.Errorf("Expected sequence number 12345, got %d", packet2.SequenceNumber)
	}

	if packet2.SSRC != 0x12345678 {
		t.Errorf("Expected SSRC 0x12345678, got 0x%x", packet2.SSRC)
	}

	if !packet2.Marker {
		t.Errorf("Expected marker bit to be true")
	}

	if string(packet2.Payload) != string(payload) {
		t.Errorf("Expected payload %s, got %s", string(payload), string(packet2.Payload))
	}
}

func TestRTPPacketTooBig(t *testing.T) {
	bigPayload := make([]byte, MaxRTPPacketSize)

	packet := NewRTPPacket(PayloadTypeH264, 1, 1, 1, bigPayload)

	_, err := Marshal(packet)
	if err == nil {
		t.Errorf("Expected error for packet that's too big")
	}
}

func TestRTPPacketTooSmall(t *testing.T) {
	_, err := ParseRTP([]byte{0x80})
	if err == nil {
		t.Errorf("Expected error for packet that's too small")
	}
}

func TestParseRTCPReceiverReport(t *testing.T) {
	rr := &rtcp.ReceiverReport{
		SSRC:    0x01020304,
		Reports: []rtcp.ReceptionReport{{SSRC: 0x0A0B0C0D}},
	}
	data, err := rr.Marshal()
	if err != nil {
		t.Fatalf("Failed to marshal receiver report: %v", err)
	}

	packets, err := ParseRTCP(data)
	if err != nil {
		t.Fatalf("Failed to parse RTCP: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("Expected 1 RTCP packet, got %d", len(packets))
	}

	desc := DescribeRTCP(packets)
	if len(desc) != 1 || !strings.Contains(desc[0], "ReceiverReport") || !strings.Contains(desc[0], "168496141") {
		t.Errorf("Unexpected description: %v", desc)
	}
}
