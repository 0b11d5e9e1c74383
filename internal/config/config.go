// Package config는 anymcp의 설정 관리를 담당합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config는 전체 애플리케이션 설정을 나타냅니다.
type Config struct {
	Registry   RegistryConfig   `mapstructure:"registry"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Bus        BusConfig        `mapstructure:"bus"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RegistryConfig는 MCP 서버 레지스트리 설정입니다.
type RegistryConfig struct {
	// Path는 설치된 MCP 서버 카탈로그 파일 경로입니다.
	Path string `mapstructure:"path"`
	// MCPDir는 local 소스 스냅샷이 복사되는 관리 디렉토리입니다.
	MCPDir string `mapstructure:"mcp_dir"`
}

// MCPConfig는 MCP 연결/호출 설정입니다.
type MCPConfig struct {
	// ConnectTimeoutSec는 서버 프로세스 시작 및 핸드셰이크 타임아웃(초)입니다.
	ConnectTimeoutSec int `mapstructure:"connect_timeout_sec"`
	// CallTimeoutSec는 단일 도구 호출 타임아웃(초)입니다.
	CallTimeoutSec int `mapstructure:"call_timeout_sec"`
}

// ConnectTimeout은 연결 타임아웃을 Duration으로 반환합니다.
func (m MCPConfig) ConnectTimeout() time.Duration {
	if m.ConnectTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.ConnectTimeoutSec) * time.Second
}

// CallTimeout은 호출 타임아웃을 Duration으로 반환합니다.
func (m MCPConfig) CallTimeout() time.Duration {
	if m.CallTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.CallTimeoutSec) * time.Second
}

// ResilienceConfig는 재시도/서킷 브레이커 설정입니다.
type ResilienceConfig struct {
	// MaxAttempts는 일시적 오류에 대한 최대 시도 횟수입니다.
	MaxAttempts int `mapstructure:"max_attempts"`
	// InitialDelayMs는 재시도 초기 지연 시간(밀리초)입니다.
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
	// BackoffMultiplier는 지수 백오프 배수입니다.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	// FailureThreshold는 서킷 브레이커가 열리는 연속 실패 횟수입니다.
	FailureThreshold int `mapstructure:"failure_threshold"`
	// RecoveryTimeoutSec는 서킷 브레이커 회복 대기 시간(초)입니다.
	RecoveryTimeoutSec int `mapstructure:"recovery_timeout_sec"`
}

// BusConfig는 외부 이벤트 버스 설정입니다.
type BusConfig struct {
	// URL은 이벤트 버스 WebSocket 엔드포인트입니다. 비어있으면 비활성화됩니다.
	URL string `mapstructure:"url"`
}

// ProvidersConfig는 LLM 프로바이더 설정 모음입니다.
type ProvidersConfig struct {
	// Default는 chat 명령의 기본 프로바이더입니다 ("claude", "gemini").
	Default string         `mapstructure:"default"`
	Claude  ProviderConfig `mapstructure:"claude"`
	Gemini  ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig는 개별 프로바이더 설정입니다.
type ProviderConfig struct {
	// APIKeyEnv는 API 키를 가져올 환경변수 이름입니다.
	APIKeyEnv string `mapstructure:"api_key_env"`
	// DefaultModel은 기본 모델명입니다.
	DefaultModel string `mapstructure:"default_model"`
	// MaxTokens는 응답당 최대 토큰 수입니다.
	MaxTokens int `mapstructure:"max_tokens"`
}

// GetAPIKey는 환경변수에서 API 키를 가져옵니다.
// API 키는 평문으로 파일에 저장하지 않습니다.
func (p ProviderConfig) GetAPIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// HasAPIKey는 API 키가 설정되어 있는지 확인합니다.
func (p ProviderConfig) HasAPIKey() bool {
	return p.GetAPIKey() != ""
}

// LoggingConfig는 로깅 설정입니다.
type LoggingConfig struct {
	// Level은 로그 레벨입니다 (debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Format은 로그 포맷입니다 (json, text).
	Format string `mapstructure:"format"`
	// File은 로그 파일 경로입니다. 비어있으면 stderr로 출력합니다.
	File string `mapstructure:"file"`
}

// Load는 설정을 로드하고 Config 구조체를 반환합니다.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("설정 파싱 실패: %w", err)
	}

	// 홈 디렉토리 경로 확장
	cfg.Registry.Path = expandPath(cfg.Registry.Path)
	cfg.Registry.MCPDir = expandPath(cfg.Registry.MCPDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// Validate는 설정의 유효성을 검사합니다.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("유효하지 않은 로그 레벨: %s (debug, info, warn, error 중 하나)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("유효하지 않은 로그 포맷: %s (json, text 중 하나)", c.Logging.Format)
	}

	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts는 1 이상이어야 합니다")
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold는 1 이상이어야 합니다")
	}

	validProviders := map[string]bool{
		"claude": true,
		"gemini": true,
	}
	if !validProviders[c.Providers.Default] {
		return fmt.Errorf("유효하지 않은 기본 프로바이더: %s (claude, gemini 중 하나)", c.Providers.Default)
	}

	return nil
}

// GetAvailableProviders는 API 키가 설정된 프로바이더 목록을 반환합니다.
func (c *Config) GetAvailableProviders() []string {
	var providers []string
	if c.Providers.Claude.HasAPIKey() {
		providers = append(providers, "claude")
	}
	if c.Providers.Gemini.HasAPIKey() {
		providers = append(providers, "gemini")
	}
	return providers
}

// expandPath는 ~를 홈 디렉토리로 확장합니다.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// DataDir는 anymcp 데이터 디렉토리 경로를 반환합니다 (~/.anymcp).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anymcp"
	}
	return filepath.Join(home, ".anymcp")
}

// DefaultConfigPath는 기본 설정 파일 경로를 반환합니다.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "anymcp", "config.yaml")
}
