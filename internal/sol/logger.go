package sol

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger는 애플리케이션의 기본 slog 로거를 설정합니다.
// logging.file이 설정되면 같은 로그를 lumberjack으로 회전되는 파일에도 기록합니다.
// 반환된 Closer는 종료 시 로그 파일을 닫습니다.
func InitLogger(config *Config) io.Closer {
	// 이 파일 위치에서 프로젝트 루트를 계산합니다.
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := getProjectRoot(filename)

	// source 경로를 프로젝트 루트 기준 상대 경로로 바꿉니다.
	replaceAttr := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source, ok := a.Value.Any().(*slog.Source)
			if !ok {
				return a
			}
			if projectRoot != "" && strings.HasPrefix(source.File, projectRoot) {
				source.File = source.File[len(projectRoot)+1:]
			}
			return slog.Any(a.Key, source)
		}
		return a
	}

	options := func(noColor bool) *tint.Options {
		return &tint.Options{
			Level:       config.GetSlogLevel(),
			AddSource:   true,
			NoColor:     noColor,
			TimeFormat:  time.RFC3339,
			ReplaceAttr: replaceAttr,
		}
	}

	var closer io.Closer = nopCloser{}
	handler := slog.Handler(tint.NewHandler(os.Stdout, options(false)))

	if config.Logging.File != "" {
		file := &lumberjack.Logger{
			Filename:   config.Logging.File,
			MaxSize:    config.Logging.MaxSize,
			MaxBackups: config.Logging.MaxBackups,
			MaxAge:     config.Logging.MaxAge,
		}
		// 파일에는 색상 코드 없이 기록합니다.
		handler = fanoutHandler{handler, tint.NewHandler(file, options(true))}
		closer = file
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

// getProjectRoot는 주어진 파일 경로에서 프로젝트 루트 경로를 추론하는 헬퍼 함수입니다.
// internal/sol/logger.go에서 두 단계 위 디렉토리를 루트로 봅니다.
func getProjectRoot(path string) string {
	dir := path
	for depth := 0; depth < 3; depth++ {
		i := strings.LastIndexByte(dir, os.PathSeparator)
		if i < 0 {
			return ""
		}
		dir = dir[:i]
	}
	return dir
}

// fanoutHandler는 같은 레코드를 여러 핸들러에 전달합니다.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithGroup(name)
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
