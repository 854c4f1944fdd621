package sol

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"solrtsp/pkg/rtsp"
)

// DefaultConfigPath는 -config 플래그가 없을 때 읽는 설정 파일입니다.
var DefaultConfigPath = filepath.Join("configs", "default.yaml")

type Config struct {
	RTSP    RTSPConfig    `yaml:"rtsp"`
	Logging LoggingConfig `yaml:"logging"`
	Stream  StreamConfig  `yaml:"stream"`
}

type RTSPConfig struct {
	Port      int             `yaml:"port"`
	Timeout   int             `yaml:"timeout"`
	UDPPort   int             `yaml:"udp_port"`
	Multicast MulticastConfig `yaml:"multicast"`
}

type MulticastConfig struct {
	AddressBase string `yaml:"address_base"`
	PortBase    int    `yaml:"port_base"`
	TTL         int    `yaml:"ttl"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

type StreamConfig struct {
	MaxPlayersPerStream int `yaml:"max_players_per_stream"`
}

// DefaultConfig returns the configuration used for keys missing from the file
func DefaultConfig() *Config {
	return &Config{
		RTSP: RTSPConfig{
			Port:    rtsp.DefaultRTSPPort,
			Timeout: rtsp.DefaultTimeout,
			Multicast: MulticastConfig{
				TTL: 255,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// LoadConfig loads configuration from yaml file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	// 파일 존재 확인
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	return ParseConfig(data)
}

// ParseConfig parses yaml on top of DefaultConfig and validates the result
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// 기본값 설정 및 검증
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	// RTSP 포트 검증
	if c.RTSP.Port <= 0 || c.RTSP.Port > 65535 {
		return errors.Errorf("invalid rtsp port: %d (must be between 1-65535)", c.RTSP.Port)
	}
	if c.RTSP.UDPPort < 0 || c.RTSP.UDPPort > 65535 {
		return errors.Errorf("invalid udp_port: %d (must be between 0-65535)", c.RTSP.UDPPort)
	}
	if c.RTSP.Timeout <= 0 {
		return errors.Errorf("invalid timeout: %d (must be positive)", c.RTSP.Timeout)
	}

	// 멀티캐스트는 address_base가 있을 때만 검증합니다.
	if m := c.RTSP.Multicast; m.AddressBase != "" {
		ip := net.ParseIP(m.AddressBase)
		if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
			return errors.Errorf("invalid multicast address_base: %s", m.AddressBase)
		}
		if m.PortBase <= 0 || m.PortBase > 65535 {
			return errors.Errorf("invalid multicast port_base: %d (must be between 1-65535)", m.PortBase)
		}
		if m.TTL <= 0 || m.TTL > 255 {
			return errors.Errorf("invalid multicast ttl: %d (must be between 1-255)", m.TTL)
		}
	}

	// 로그 레벨 검증
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if strings.ToLower(c.Logging.Level) == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return errors.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	if c.Stream.MaxPlayersPerStream < 0 {
		return errors.Errorf("invalid max_players_per_stream: %d (must be non-negative)", c.Stream.MaxPlayersPerStream)
	}

	return nil
}

// GetSlogLevel returns slog.Level from config
func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // 기본값
	}
}

// ServerConfig converts the file configuration to the RTSP server's
func (c *Config) ServerConfig() rtsp.RTSPConfig {
	return rtsp.RTSPConfig{
		Port:    c.RTSP.Port,
		Timeout: c.RTSP.Timeout,
		UDPPort: c.RTSP.UDPPort,
		Multicast: rtsp.MulticastConfig{
			AddressBase: c.RTSP.Multicast.AddressBase,
			PortBase:    c.RTSP.Multicast.PortBase,
			TTL:         c.RTSP.Multicast.TTL,
		},
		MaxPlayersPerStream: c.Stream.MaxPlayersPerStream,
	}
}
