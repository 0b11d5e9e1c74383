// Package logger는 구조화된 로깅을 제공합니다.
// 민감 정보(API 키, 토큰)는 항상 마스킹하여 기록합니다.
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/insajin/anymcp/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 민감 정보 패턴
var sensitivePatterns = []*regexp.Regexp{
	// API 키 패턴 (sk-ant-*, AIza*, sk-*)
	regexp.MustCompile(`(sk-ant-[a-zA-Z0-9\-_]{20,})`),
	regexp.MustCompile(`(AIza[a-zA-Z0-9\-_]{30,})`),
	regexp.MustCompile(`(sk-[a-zA-Z0-9]{20,})`),
	// Bearer 토큰
	regexp.MustCompile(`(Bearer\s+[a-zA-Z0-9\-_\.]+)`),
	// 일반 API 키 패턴 (api_key=, token= 등)
	regexp.MustCompile(`((?:api[_-]?key|apikey|key|token|secret|password)\s*[=:]\s*)([a-zA-Z0-9\-_\.]{10,})`),
}

// maskedWriter는 민감 정보를 마스킹하는 io.Writer입니다.
type maskedWriter struct {
	underlying io.Writer
}

// Write는 민감 정보를 마스킹한 후 기록합니다.
func (w *maskedWriter) Write(p []byte) (n int, err error) {
	masked := MaskSensitive(string(p))
	if _, err := w.underlying.Write([]byte(masked)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Setup은 전역 로거를 초기화합니다.
// MCP 서버가 stdio를 점유하므로 로그는 stderr 또는 파일로만 출력합니다.
func Setup(cfg config.LoggingConfig) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stderr
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.File).Msg("로그 파일을 열 수 없어 stderr를 사용합니다")
		} else {
			output = file
		}
	}

	maskedOutput := &maskedWriter{underlying: output}

	if cfg.Format == "text" {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        maskedOutput,
			TimeFormat: time.RFC3339,
		}
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(maskedOutput).With().Timestamp().Logger()
	}
}

// parseLevel은 문자열 레벨을 zerolog.Level로 변환합니다.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// MaskSensitive는 문자열에서 민감 정보를 마스킹합니다.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			// 키-값 패턴 처리 (api_key=xxx 형태)
			if strings.Contains(match, "=") || strings.Contains(match, ":") {
				parts := regexp.MustCompile(`[=:]`).Split(match, 2)
				if len(parts) == 2 {
					prefix := parts[0] + string(match[len(parts[0])])
					value := strings.TrimSpace(parts[1])
					return prefix + maskValue(value)
				}
			}
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer " + maskValue(strings.TrimPrefix(match, "Bearer "))
			}
			return maskValue(match)
		})
	}
	return result
}

// maskValue는 앞 4자와 뒤 4자만 남기고 나머지를 ***로 대체합니다.
func maskValue(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// WithServer는 MCP 서버 이름을 컨텍스트에 추가한 로거를 반환합니다.
func WithServer(name string) zerolog.Logger {
	return log.With().Str("server", name).Logger()
}
