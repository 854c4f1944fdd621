package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"solrtsp/internal/sol"
)

func main() {
	configPath := flag.String("config", sol.DefaultConfigPath, "path to the yaml configuration")
	flag.Parse()

	config, err := sol.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	server := sol.NewServer(config)

	// 서버 시작
	if err := server.Start(); err != nil {
		slog.Error("Failed to start server", "err", err)
		os.Exit(1)
	}

	slog.Info("RTSP Server started", "port", config.RTSP.Port)

	// 시그널 수신을 위한 채널 생성
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 시그널 대기
	sig := <-sigChan
	slog.Info("Received signal, shutting down server", "signal", sig)

	server.Stop()
}
