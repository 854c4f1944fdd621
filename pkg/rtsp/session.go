package rtsp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"solrtsp/pkg/rtp"
)

// Session represents an RTSP client session
type Session struct {
	sessionId       uint32
	conn            net.Conn
	buf             *Buffer
	req             *Request
	writer          *MessageWriter
	state           SessionState
	streamPath      string
	stream          *Stream
	publisher       bool
	transport       TransportMode
	tracks          [2]trackTransport
	closing         bool
	timeout         time.Duration
	lastActivity    time.Time
	streams         *StreamManager
	rtpTransport    *rtp.RTPTransport
	externalChannel chan<- interface{}
	serverDone      <-chan struct{}
	ctx             context.Context
	cancel          context.CancelFunc
	stopOnce        sync.Once
	mu              sync.Mutex
}

// trackTransport is where the media of one track goes for this session
type trackTransport struct {
	configured  bool
	rtpChannel  uint16
	rtcpChannel uint16
	udpKey      string
}

// SessionState represents the current state of an RTSP session
type SessionState int

const (
	StateInit SessionState = iota
	StateReady
	StatePlaying
	StateRecording
)

// String returns the string representation of the session state
func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StateRecording:
		return "Recording"
	default:
		return "Unknown"
	}
}

// sessionDeps are the server resources a session works with
type sessionDeps struct {
	timeout         time.Duration
	streams         *StreamManager
	rtpTransport    *rtp.RTPTransport
	externalChannel chan<- interface{}
	serverDone      <-chan struct{}
}

// NewSession creates a new RTSP session
func NewSession(conn net.Conn, sessionId uint32, deps sessionDeps) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	timeout := deps.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}

	return &Session{
		sessionId:       sessionId,
		conn:            conn,
		buf:             NewBuffer(nil),
		req:             NewRequest(),
		writer:          NewMessageWriter(conn),
		state:           StateInit,
		timeout:         timeout,
		lastActivity:    time.Now(),
		streams:         deps.streams,
		rtpTransport:    deps.rtpTransport,
		externalChannel: deps.externalChannel,
		serverDone:      deps.serverDone,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start starts the session handling
func (s *Session) Start() {
	slog.Info("RTSP session started", "sessionId", s.sessionId, "remoteAddr", s.conn.RemoteAddr())

	go s.handleRequests()
	go s.handleTimeout()
}

// Stop stops the session
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		slog.Info("RTSP session stopping", "sessionId", s.sessionId)

		s.cancel()
		if s.conn != nil {
			s.conn.Close()
		}

		s.emit(SessionTerminated{SessionId: s.sessionId})
	})
}

// ID returns the session id
func (s *Session) ID() uint32 {
	return s.sessionId
}

// emit sends an event to the server loop unless the server is gone
func (s *Session) emit(event interface{}) {
	if s.externalChannel == nil {
		return
	}
	select {
	case s.externalChannel <- event:
	case <-s.serverDone:
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// handleRequests reads from the connection and parses what arrives
func (s *Session) handleRequests() {
	defer s.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(s.timeout))

		n, err := s.buf.ReadOnce(s.conn)
		if n > 0 {
			s.touch()
			if perr := s.processBuffer(); perr != nil {
				slog.Error("Failed to process RTSP data", "sessionId", s.sessionId, "err", perr)
				return
			}
			if s.closing {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				slog.Info("RTSP connection closed by peer", "sessionId", s.sessionId)
			} else {
				slog.Error("Failed to read RTSP data", "sessionId", s.sessionId, "err", err)
			}
			return
		}
	}
}

// processBuffer parses every complete request and interleaved frame in the buffer
func (s *Session) processBuffer() error {
	for s.buf.Len() > 0 && !s.closing {
		if err := s.req.Parse(s.buf); err != nil {
			s.sendErrorResponse(StatusFor(err, s.req.Method()))
			return err
		}

		if s.req.Method() == MethodRTCP {
			done, err := s.handleInterleaved()
			s.req.Reset()
			if err != nil || !done {
				return err
			}
			continue
		}

		if !s.req.Complete() {
			return nil
		}

		slog.Debug("RTSP request received", "sessionId", s.sessionId, "method", s.req.Method(), "url", s.req.URL(), "cseq", s.req.CSeq())

		if err := s.handleRequest(s.req); err != nil {
			slog.Error("Failed to handle RTSP request", "sessionId", s.sessionId, "method", s.req.Method(), "err", err)
			s.sendErrorResponse(StatusInternalServerError)
		}
		s.req.Reset()
	}
	return nil
}

// handleInterleaved consumes one '$' frame. It returns false when the frame
// has not fully arrived.
func (s *Session) handleInterleaved() (bool, error) {
	frame, n, err := rtp.ParseInterleavedFrame(s.buf.Peek())
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	s.buf.RetrieveUntil(n)

	if frame.IsRTCP() {
		packets, err := rtp.ParseRTCP(frame.Payload)
		if err != nil {
			slog.Debug("Invalid interleaved RTCP", "sessionId", s.sessionId, "err", err)
			return true, nil
		}
		slog.Debug("Interleaved RTCP received", "sessionId", s.sessionId, "channel", frame.Channel, "packets", rtp.DescribeRTCP(packets))
		return true, nil
	}

	if !s.publisher || s.state != StateRecording {
		slog.Debug("Dropping interleaved RTP outside of RECORD", "sessionId", s.sessionId, "channel", frame.Channel)
		return true, nil
	}

	channel, ok := s.channelFor(frame.Channel)
	if !ok {
		slog.Warn("Interleaved RTP on unknown channel", "sessionId", s.sessionId, "channel", frame.Channel)
		return true, nil
	}

	if _, err := rtp.ParseRTP(frame.Payload); err != nil {
		slog.Warn("Invalid interleaved RTP", "sessionId", s.sessionId, "err", err)
		return true, nil
	}

	s.emit(RTPPacketReceived{
		SessionId:  s.sessionId,
		StreamPath: s.streamPath,
		Channel:    channel,
		Data:       frame.Payload,
	})
	return true, nil
}

// channelFor maps an interleaved channel number to the track set up on it
func (s *Session) channelFor(interleaved uint8) (ChannelID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, track := range s.tracks {
		if track.configured && track.rtpChannel == uint16(interleaved) {
			return ChannelID(i), true
		}
	}
	return Channel0, false
}

// handleTimeout handles session timeout
func (s *Session) handleTimeout() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.idle() > s.timeout {
				slog.Info("RTSP session timed out", "sessionId", s.sessionId)
				s.Stop()
				return
			}
		}
	}
}

// handleRequest handles a specific RTSP request
func (s *Session) handleRequest(req *Request) error {
	switch req.Method() {
	case MethodOptions:
		return s.writer.WriteMessage(req.BuildOptionRes())
	case MethodDescribe:
		return s.handleDescribe(req)
	case MethodSetup:
		return s.handleSetup(req)
	case MethodPlay:
		return s.handlePlay(req)
	case MethodTeardown:
		return s.handleTeardown(req)
	case MethodGetParameter:
		return s.writer.WriteMessage(req.BuildGetParameterRes(s.sessionId))
	case MethodAnnounce:
		return s.handleAnnounce(req)
	case MethodRecord:
		return s.handleRecord(req)
	default:
		return s.writer.WriteMessage(req.BuildNotImplementedRes())
	}
}

// handleDescribe answers with the SDP announced by the stream's publisher
func (s *Session) handleDescribe(req *Request) error {
	path := streamPath(req.URLSuffix())
	stream := s.streams.GetStream(path)
	if stream == nil || !stream.HasPublisher() {
		slog.Info("DESCRIBE for unknown stream", "sessionId", s.sessionId, "streamPath", path)
		return s.writer.WriteMessage(req.BuildNotFoundRes())
	}

	if s.stream == nil {
		s.stream = stream
		s.streamPath = path
		stream.AddSession(s)
	}

	return s.writer.WriteMessage(req.BuildDescribeRes(stream.GetSDP()))
}

// handleSetup handles SETUP request
func (s *Session) handleSetup(req *Request) error {
	path := streamPath(req.URLSuffix())
	stream := s.streams.GetStream(path)
	if stream == nil {
		return s.writer.WriteMessage(req.BuildNotFoundRes())
	}
	if s.stream == nil {
		s.stream = stream
		s.streamPath = path
		stream.AddSession(s)
	}

	mode := req.Transport()
	if s.transport != TransportUnset && mode != s.transport {
		slog.Warn("SETUP changes transport", "sessionId", s.sessionId, "from", s.transport, "to", mode)
		return s.writer.WriteMessage(req.BuildUnsupportedRes())
	}

	channel := req.Channel()
	track := trackTransport{configured: true}
	var response []byte

	switch mode {
	case RTPOverTCP:
		track.rtpChannel, track.rtcpChannel = req.RTPChannel(), req.RTCPChannel()
		response = req.BuildSetupTCPRes(req.RTPChannel(), req.RTCPChannel(), s.sessionId)

	case RTPOverUDP:
		serverPort := 0
		if s.rtpTransport != nil {
			serverPort = s.rtpTransport.LocalPort()
		}
		if s.publisher || serverPort == 0 {
			return s.writer.WriteMessage(req.BuildUnsupportedRes())
		}
		host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
		if err != nil {
			return err
		}
		track.udpKey = fmt.Sprintf("%d/%d", s.sessionId, channel)
		if err := s.rtpTransport.AddDestination(track.udpKey, host, int(req.RTPPort())); err != nil {
			return err
		}
		response = req.BuildSetupUDPRes(uint16(serverPort), uint16(s.rtpTransport.RTCPPort()), s.sessionId)

	case RTPOverMulticast:
		if s.publisher {
			return s.writer.WriteMessage(req.BuildUnsupportedRes())
		}
		if err := stream.EnableMulticast(channel); err != nil {
			slog.Error("Failed to enable multicast", "sessionId", s.sessionId, "streamPath", path, "err", err)
			return s.writer.WriteMessage(req.BuildUnsupportedRes())
		}
		group, port := stream.MulticastGroup(channel)
		response = req.BuildSetupMulticastRes(group, port, s.sessionId)

	default:
		return s.writer.WriteMessage(req.BuildUnsupportedRes())
	}

	s.mu.Lock()
	s.transport = mode
	s.tracks[channel] = track
	s.mu.Unlock()

	if s.state == StateInit {
		s.state = StateReady
	}

	slog.Info("RTSP transport negotiated", "sessionId", s.sessionId, "streamPath", path, "transport", mode, "channel", channel)
	return s.writer.WriteMessage(response)
}

// handlePlay handles PLAY request
func (s *Session) handlePlay(req *Request) error {
	if req.SessionID() != s.sessionId {
		return s.writer.WriteMessage(req.BuildStatusRes(StatusSessionNotFound))
	}
	if s.state != StateReady || s.publisher || s.stream == nil {
		return s.writer.WriteMessage(req.BuildStatusRes(StatusMethodNotValidInThisState))
	}

	if err := s.stream.AddPlayer(s); err != nil {
		slog.Warn("PLAY refused", "sessionId", s.sessionId, "err", err)
		return s.writer.WriteMessage(req.BuildServerErrorRes())
	}
	s.state = StatePlaying

	s.emit(PlayStarted{SessionId: s.sessionId, StreamPath: s.streamPath})

	rtpInfo := fmt.Sprintf("%s: url=%s;seq=0;rtptime=0", HeaderRTPInfo, req.URL())
	return s.writer.WriteMessage(req.BuildPlayRes(rtpInfo, s.sessionId))
}

// handleTeardown handles TEARDOWN request
func (s *Session) handleTeardown(req *Request) error {
	switch s.state {
	case StatePlaying:
		s.stream.RemovePlayer(s)
		s.emit(PlayStopped{SessionId: s.sessionId, StreamPath: s.streamPath})
	case StateRecording:
		s.stream.SetActive(false)
		s.emit(RecordStopped{SessionId: s.sessionId, StreamPath: s.streamPath})
	}

	s.state = StateInit
	s.closing = true

	return s.writer.WriteMessage(req.BuildTeardownRes(s.sessionId))
}

// handleAnnounce registers the session as publisher of the announced stream
func (s *Session) handleAnnounce(req *Request) error {
	path := streamPath(req.URLSuffix())

	tracks, err := ValidateSDP(req.Body())
	if err != nil {
		slog.Warn("ANNOUNCE with invalid SDP", "sessionId", s.sessionId, "streamPath", path, "err", err)
		return s.writer.WriteMessage(req.BuildStatusRes(StatusBadRequest))
	}

	stream := s.streams.GetOrCreateStream(path)
	if err := stream.SetPublisher(s, req.Body()); err != nil {
		slog.Warn("ANNOUNCE refused", "sessionId", s.sessionId, "err", err)
		return s.writer.WriteMessage(req.BuildStatusRes(StatusMethodNotValidInThisState))
	}
	stream.AddSession(s)

	s.stream = stream
	s.streamPath = path
	s.publisher = true

	s.emit(AnnounceReceived{SessionId: s.sessionId, StreamPath: path, SDP: string(req.Body())})
	slog.Info("Stream announced", "sessionId", s.sessionId, "streamPath", path, "tracks", tracks)

	return s.writer.WriteMessage(req.BuildAnnounceRes(s.sessionId))
}

// handleRecord handles RECORD request
func (s *Session) handleRecord(req *Request) error {
	if !s.publisher || s.state != StateReady {
		return s.writer.WriteMessage(req.BuildStatusRes(StatusMethodNotValidInThisState))
	}

	s.stream.SetActive(true)
	s.state = StateRecording

	s.emit(RecordStarted{SessionId: s.sessionId, StreamPath: s.streamPath})

	return s.writer.WriteMessage(req.BuildRecordRes(s.sessionId))
}

// SendRTPPacket delivers a packet of one track over the negotiated transport
func (s *Session) SendRTPPacket(channel ChannelID, data []byte) error {
	s.mu.Lock()
	mode := s.transport
	track := s.tracks[channel]
	s.mu.Unlock()

	if !track.configured {
		return nil
	}

	switch mode {
	case RTPOverTCP:
		return s.writer.WriteInterleaved(uint8(track.rtpChannel), data)
	case RTPOverUDP:
		return s.rtpTransport.SendRTPPacket(track.udpKey, data)
	default:
		// multicast packets are sent once per stream
		return nil
	}
}

// udpKeys returns the RTP destinations registered for this session
func (s *Session) udpKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for _, track := range s.tracks {
		if track.udpKey != "" {
			keys = append(keys, track.udpKey)
		}
	}
	return keys
}

// sendErrorResponse sends an error response
func (s *Session) sendErrorResponse(statusCode int) {
	if err := s.writer.WriteMessage(s.req.BuildStatusRes(statusCode)); err != nil {
		slog.Error("Failed to send RTSP error response", "sessionId", s.sessionId, "status", statusCode, "err", err)
	}
}

// streamPath strips the trackN element a SETUP url adds to the stream path
func streamPath(suffix string) string {
	if i := strings.LastIndexByte(suffix, '/'); i >= 0 && strings.HasPrefix(suffix[i+1:], "track") {
		return suffix[:i]
	}
	return suffix
}
