package rtsp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"solrtsp/pkg/rtp"
)

// MulticastConfig is the pool multicast groups are allocated from
type MulticastConfig struct {
	AddressBase string
	PortBase    int
	TTL         int
}

// Stream represents an RTSP stream
type Stream struct {
	name       string
	sessions   map[*Session]struct{} // connected sessions
	publisher  *Session              // publishing session (for RECORD)
	players    map[*Session]struct{} // playing sessions
	sdp        []byte                // Session Description Protocol
	isActive   bool
	group      string // multicast group address
	groupPort  int
	ttl        int
	multicast  [2]*rtp.MulticastSender
	maxPlayers int
	mutex      sync.RWMutex
}

// StreamManager manages RTSP streams
type StreamManager struct {
	streams    map[string]*Stream
	multicast  MulticastConfig
	maxPlayers int
	allocated  int
	mutex      sync.RWMutex
}

// NewStreamManager creates a new stream manager
func NewStreamManager(multicast MulticastConfig, maxPlayers int) *StreamManager {
	return &StreamManager{
		streams:    make(map[string]*Stream),
		multicast:  multicast,
		maxPlayers: maxPlayers,
	}
}

// NewStream creates a new RTSP stream
func NewStream(name string) *Stream {
	return &Stream{
		name:     name,
		sessions: make(map[*Session]struct{}),
		players:  make(map[*Session]struct{}),
		isActive: false,
	}
}

// GetOrCreateStream gets or creates a stream
func (sm *StreamManager) GetOrCreateStream(streamPath string) *Stream {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	stream, exists := sm.streams[streamPath]
	if !exists {
		stream = NewStream(streamPath)
		stream.maxPlayers = sm.maxPlayers
		stream.group, stream.groupPort = sm.allocateMulticast()
		stream.ttl = sm.multicast.TTL
		sm.streams[streamPath] = stream
		slog.Info("RTSP stream created", "streamPath", streamPath, "multicastGroup", stream.group, "multicastPort", stream.groupPort)
	}

	return stream
}

// allocateMulticast hands out the next group address and port pair.
// Each stream gets its own group; track N uses port base+2N. Once the last
// octet or the port range would wrap, streams get no group and multicast
// SETUP is refused.
func (sm *StreamManager) allocateMulticast() (string, int) {
	base := net.ParseIP(sm.multicast.AddressBase).To4()
	if base == nil {
		return "", 0
	}
	index := sm.allocated
	sm.allocated++
	if int(base[3])+index > 255 || sm.multicast.PortBase+4*index+3 > 65535 {
		slog.Warn("Multicast groups exhausted", "addressBase", sm.multicast.AddressBase, "index", index)
		return "", 0
	}

	ip := make(net.IP, len(base))
	copy(ip, base)
	ip[3] += byte(index)
	return ip.String(), sm.multicast.PortBase + 4*index
}

// GetStream gets a stream by path
func (sm *StreamManager) GetStream(streamPath string) *Stream {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	return sm.streams[streamPath]
}

// RemoveStream removes a stream
func (sm *StreamManager) RemoveStream(streamPath string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if stream, ok := sm.streams[streamPath]; ok {
		stream.closeMulticast()
	}
	delete(sm.streams, streamPath)
	slog.Info("RTSP stream removed", "streamPath", streamPath)
}

// GetAllStreams returns all streams
func (sm *StreamManager) GetAllStreams() map[string]*Stream {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	result := make(map[string]*Stream)
	for path, stream := range sm.streams {
		result[path] = stream
	}

	return result
}

// AddSession adds a session to the stream
func (s *Stream) AddSession(session *Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[session] = struct{}{}
	slog.Info("Session added to RTSP stream", "streamPath", s.name, "sessionId", session.sessionId, "sessionCount", len(s.sessions))
}

// RemoveSession removes a session from the stream
func (s *Stream) RemoveSession(session *Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, session)
	delete(s.players, session)

	if s.publisher == session {
		s.publisher = nil
		s.isActive = false
		slog.Info("Publisher removed from RTSP stream", "streamPath", s.name)
	}

	slog.Info("Session removed from RTSP stream", "streamPath", s.name, "sessionId", session.sessionId, "sessionCount", len(s.sessions))
}

// SetPublisher sets the publishing session. It fails when another session
// already publishes the stream.
func (s *Stream) SetPublisher(session *Session, sdp []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.publisher != nil && s.publisher != session {
		return fmt.Errorf("stream %s already has a publisher", s.name)
	}
	s.publisher = session
	s.sdp = sdp

	slog.Info("Publisher set for RTSP stream", "streamPath", s.name, "sessionId", session.sessionId)
	return nil
}

// SetActive marks the stream as receiving media
func (s *Stream) SetActive(active bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.isActive = active
}

// AddPlayer adds a playing session
func (s *Stream) AddPlayer(session *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.maxPlayers > 0 && len(s.players) >= s.maxPlayers {
		return fmt.Errorf("stream %s reached %d players", s.name, s.maxPlayers)
	}
	s.players[session] = struct{}{}
	slog.Info("Player added to RTSP stream", "streamPath", s.name, "sessionId", session.sessionId, "playerCount", len(s.players))
	return nil
}

// RemovePlayer removes a playing session
func (s *Stream) RemovePlayer(session *Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.players, session)
	slog.Info("Player removed from RTSP stream", "streamPath", s.name, "sessionId", session.sessionId, "playerCount", len(s.players))
}

// GetSDP returns the SDP for the stream
func (s *Stream) GetSDP() []byte {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.sdp
}

// HasPublisher reports whether a session has announced the stream
func (s *Stream) HasPublisher() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.publisher != nil
}

// IsActive returns whether the stream is active
func (s *Stream) IsActive() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.isActive
}

// GetPlayerCount returns the number of players
func (s *Stream) GetPlayerCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.players)
}

// GetSessionCount returns the total number of sessions
func (s *Stream) GetSessionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}

// MulticastGroup returns the group address and the port of a track
func (s *Stream) MulticastGroup(channel ChannelID) (string, uint16) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.group, uint16(s.groupPort + 2*int(channel))
}

// EnableMulticast opens the multicast sender of a track
func (s *Stream) EnableMulticast(channel ChannelID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.group == "" {
		return fmt.Errorf("no multicast group for stream %s", s.name)
	}
	if s.multicast[channel] != nil {
		return nil
	}
	sender, err := rtp.NewMulticastSender(s.group, s.groupPort+2*int(channel), s.ttl)
	if err != nil {
		return err
	}
	s.multicast[channel] = sender
	return nil
}

func (s *Stream) closeMulticast() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, sender := range s.multicast {
		if sender != nil {
			sender.Close()
			s.multicast[i] = nil
		}
	}
}

// BroadcastRTPPacket sends an RTP packet of a track to all players
func (s *Stream) BroadcastRTPPacket(channel ChannelID, data []byte) {
	s.mutex.RLock()
	players := make([]*Session, 0, len(s.players))
	for player := range s.players {
		players = append(players, player)
	}
	multicast := s.multicast[channel]
	s.mutex.RUnlock()

	if multicast != nil {
		if err := multicast.Send(data); err != nil {
			slog.Error("Failed to send multicast RTP packet", "streamPath", s.name, "err", err)
		}
	}

	for _, player := range players {
		if err := player.SendRTPPacket(channel, data); err != nil {
			slog.Error("Failed to send RTP packet to player",
				"streamPath", s.name, "sessionId", player.sessionId, "err", err)
		} else {
			slog.Debug("RTP packet sent to player",
				"streamPath", s.name, "sessionId", player.sessionId, "dataSize", len(data))
		}
	}
}
