package rtsp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"solrtsp/pkg/rtp"
)

// RTSPConfig represents RTSP server configuration
type RTSPConfig struct {
	Port                int
	Timeout             int // seconds
	UDPPort             int // server RTP port for UDP unicast, 0 disables it
	Multicast           MulticastConfig
	MaxPlayersPerStream int
}

// Server represents an RTSP server
type Server struct {
	port          int
	timeout       time.Duration
	udpPort       int
	sessions      map[uint32]*Session // sessionId -> session
	sessionsMu    sync.Mutex
	streamManager *StreamManager
	rtpTransport  *rtp.RTPTransport
	channel       chan interface{}
	listener      net.Listener
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewServer creates a new RTSP server
func NewServer(config RTSPConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}

	return &Server{
		port:          config.Port,
		timeout:       timeout,
		udpPort:       config.UDPPort,
		sessions:      make(map[uint32]*Session),
		streamManager: NewStreamManager(config.Multicast, config.MaxPlayersPerStream),
		rtpTransport:  rtp.NewRTPTransport(),
		channel:       make(chan interface{}, 100),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the RTSP server
func (s *Server) Start() error {
	if s.udpPort > 0 {
		if err := s.rtpTransport.StartUDP(s.udpPort); err != nil {
			return errors.Wrap(err, "rtsp: start RTP transport")
		}
	}

	ln, err := s.createListener()
	if err != nil {
		s.rtpTransport.Stop()
		return err
	}
	s.listener = ln

	go s.eventLoop()
	go s.acceptConnections(ln)

	slog.Info("RTSP server started", "addr", ln.Addr())
	return nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Streams returns the stream manager
func (s *Server) Streams() *StreamManager {
	return s.streamManager
}

// Stop stops the RTSP server
func (s *Server) Stop() {
	slog.Info("RTSP Server stopping...")

	s.cancel()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("Error closing RTSP listener", "err", err)
		} else {
			slog.Info("RTSP Listener closed")
		}
	}

	s.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[uint32]*Session)
	s.sessionsMu.Unlock()

	slog.Info("Closing all RTSP sessions", "sessionCount", len(sessions))
	for _, session := range sessions {
		session.Stop()
		slog.Debug("RTSP session stopped", "sessionId", session.sessionId)
	}

	for path := range s.streamManager.GetAllStreams() {
		s.streamManager.RemoveStream(path)
	}
	s.rtpTransport.Stop()

	// sessions may still hold the channel, so it is drained and left open
	for {
		select {
		case <-s.channel:
		default:
			slog.Info("RTSP Server stopped successfully")
			return
		}
	}
}

// eventLoop processes events
func (s *Server) eventLoop() {
	for {
		select {
		case event := <-s.channel:
			s.handleEvent(event)
		case <-s.ctx.Done():
			slog.Info("RTSP Event loop stopping...")
			return
		}
	}
}

// handleEvent handles different types of events
func (s *Server) handleEvent(event interface{}) {
	switch e := event.(type) {
	case SessionTerminated:
		s.handleSessionTerminated(e)
	case PlayStarted:
		slog.Info("PLAY started", "sessionId", e.SessionId, "streamPath", e.StreamPath)
	case PlayStopped:
		slog.Info("PLAY stopped", "sessionId", e.SessionId, "streamPath", e.StreamPath)
	case RecordStarted:
		slog.Info("RECORD started", "sessionId", e.SessionId, "streamPath", e.StreamPath)
	case RecordStopped:
		slog.Info("RECORD stopped", "sessionId", e.SessionId, "streamPath", e.StreamPath)
	case AnnounceReceived:
		slog.Info("ANNOUNCE received", "sessionId", e.SessionId, "streamPath", e.StreamPath, "sdpSize", len(e.SDP))
	case RTPPacketReceived:
		s.handleRTPPacketReceived(e)
	default:
		slog.Warn("Unknown RTSP event type", "eventType", fmt.Sprintf("%T", e))
	}
}

// handleSessionTerminated removes the session from the server and its streams
func (s *Server) handleSessionTerminated(event SessionTerminated) {
	s.sessionsMu.Lock()
	session := s.sessions[event.SessionId]
	delete(s.sessions, event.SessionId)
	s.sessionsMu.Unlock()

	if session == nil {
		slog.Warn("Session not found for termination", "sessionId", event.SessionId)
		return
	}

	for _, key := range session.udpKeys() {
		s.rtpTransport.RemoveDestination(key)
	}

	for path, stream := range s.streamManager.GetAllStreams() {
		stream.RemoveSession(session)

		if stream.GetSessionCount() == 0 {
			s.streamManager.RemoveStream(path)
		}
	}

	slog.Info("RTSP session terminated", "sessionId", event.SessionId)
}

// handleRTPPacketReceived relays a published packet to the stream's players
func (s *Server) handleRTPPacketReceived(event RTPPacketReceived) {
	stream := s.streamManager.GetStream(event.StreamPath)
	if stream == nil {
		return
	}

	stream.BroadcastRTPPacket(event.Channel, event.Data)
}

// allocateSessionID returns a non-zero id no live session uses.
// The caller holds sessionsMu.
func (s *Server) allocateSessionID() uint32 {
	for {
		id := uuid.New().ID()
		if id == 0 {
			continue
		}
		if _, exists := s.sessions[id]; !exists {
			return id
		}
	}
}

// createListener creates a TCP listener
func (s *Server) createListener() (net.Listener, error) {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("Error starting RTSP server", "err", err)
		return nil, errors.Wrapf(err, "rtsp: listen on %s", addr)
	}

	return ln, nil
}

// acceptConnections accepts incoming connections
func (s *Server) acceptConnections(ln net.Listener) {
	defer closeWithLog(ln)

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("RTSP accept loop stopping...")
			return
		default:
		}

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				slog.Info("RTSP accept loop stopped (listener closed)")
				return
			default:
				slog.Error("RTSP accept failed", "err", err)
				return
			}
		}

		s.sessionsMu.Lock()
		sessionId := s.allocateSessionID()
		session := NewSession(conn, sessionId, sessionDeps{
			timeout:         s.timeout,
			streams:         s.streamManager,
			rtpTransport:    s.rtpTransport,
			externalChannel: s.channel,
			serverDone:      s.ctx.Done(),
		})
		s.sessions[sessionId] = session
		s.sessionsMu.Unlock()

		session.Start()

		slog.Info("New RTSP session created", "sessionId", sessionId, "remoteAddr", conn.RemoteAddr())
	}
}

// closeWithLog closes a resource with logging
func closeWithLog(c io.Closer) {
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Error("Error closing resource", "err", err)
	}
}
