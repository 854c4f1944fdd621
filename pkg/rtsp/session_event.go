package rtsp

// SessionTerminated represents session termination
type SessionTerminated struct {
	SessionId uint32
}

// PlayStarted represents PLAY start
type PlayStarted struct {
	SessionId  uint32
	StreamPath string
}

// PlayStopped represents PLAY stop
type PlayStopped struct {
	SessionId  uint32
	StreamPath string
}

// RecordStarted represents RECORD start
type RecordStarted struct {
	SessionId  uint32
	StreamPath string
}

// RecordStopped represents RECORD stop
type RecordStopped struct {
	SessionId  uint32
	StreamPath string
}

// AnnounceReceived represents ANNOUNCE with SDP
type AnnounceReceived struct {
	SessionId  uint32
	StreamPath string
	SDP        string
}

// RTPPacketReceived represents RTP packet data from a publisher
type RTPPacketReceived struct {
	SessionId  uint32
	StreamPath string
	Channel    ChannelID
	Data       []byte
}
