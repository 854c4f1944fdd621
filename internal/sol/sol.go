package sol

import (
	"io"
	"log/slog"
	"time"

	"solrtsp/pkg/rtsp"
)

type Server struct {
	config    *Config
	ticker    *time.Ticker
	rtsp      *rtsp.Server
	logCloser io.Closer
	done      chan struct{} // 종료 신호 채널
}

func NewServer(config *Config) *Server {
	logCloser := InitLogger(config)

	return &Server{
		config:    config,
		rtsp:      rtsp.NewServer(config.ServerConfig()),
		ticker:    time.NewTicker(time.Minute),
		logCloser: logCloser,
		done:      make(chan struct{}),
	}
}

func (s *Server) Start() error {
	slog.Info("Start Server", "rtspPort", s.config.RTSP.Port, "udpPort", s.config.RTSP.UDPPort)
	if err := s.rtsp.Start(); err != nil {
		return err
	}

	go s.eventLoop()
	return nil
}

func (s *Server) Stop() {
	slog.Info("Stopping Sol Server...")

	// 1. RTSP 서버 종료
	s.rtsp.Stop()

	// 2. 티커 종료
	s.ticker.Stop()

	// 3. 이벤트 루프 종료
	close(s.done)

	slog.Info("Sol Server stopped successfully")
	if err := s.logCloser.Close(); err != nil {
		slog.Error("Failed to close log file", "err", err)
	}
}

// eventLoop는 주기적으로 스트림 현황을 기록합니다.
func (s *Server) eventLoop() {
	for {
		select {
		case <-s.ticker.C:
			s.logStreams()
		case <-s.done:
			slog.Info("Sol event loop stopping...")
			return
		}
	}
}

func (s *Server) logStreams() {
	streams := s.rtsp.Streams().GetAllStreams()
	for path, stream := range streams {
		slog.Info("Stream status", "streamPath", path, "active", stream.IsActive(),
			"players", stream.GetPlayerCount(), "sessions", stream.GetSessionCount())
	}
	slog.Debug("Stream summary", "streamCount", len(streams))
}
