package rtsp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pion/sdp/v3"
)

// MediaSpec describes one track of a generated session description
type MediaSpec struct {
	Kind        string // "video" or "audio"
	PayloadType uint8
	RTPMap      string // e.g. "H264/90000"
}

// BuildSDP generates the session description a pusher announces
func BuildSDP(name, address string, medias []MediaSpec) ([]byte, error) {
	id := uint64(time.Now().UnixNano())
	desc := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      id,
			SessionVersion: id,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: address,
		},
		SessionName: sdp.SessionName(name),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: "0.0.0.0"},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{}}},
	}

	for i, m := range medias {
		pt := strconv.Itoa(int(m.PayloadType))
		media := &sdp.MediaDescription{
			MediaName: sdp.MediaName{
				Media:   m.Kind,
				Port:    sdp.RangedPort{Value: 0},
				Protos:  []string{"RTP", "AVP"},
				Formats: []string{pt},
			},
		}
		media.WithValueAttribute("rtpmap", pt+" "+m.RTPMap)
		media.WithValueAttribute("control", fmt.Sprintf("track%d", i))
		desc.MediaDescriptions = append(desc.MediaDescriptions, media)
	}

	return desc.Marshal()
}

// ValidateSDP parses an announced session description and returns the
// number of media tracks it declares
func ValidateSDP(body []byte) (int, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(body); err != nil {
		return 0, fmt.Errorf("invalid session description: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return 0, fmt.Errorf("session description has no media")
	}
	return len(desc.MediaDescriptions), nil
}
