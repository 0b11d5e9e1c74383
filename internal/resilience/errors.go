// Package resilience는 MCP 호출에 합성 가능한 복원력 프리미티브를 제공합니다.
// 타입화된 오류 분류, 타임아웃, 재시도, 서킷 브레이커, 오류 집계를 포함합니다.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind는 MCP 오류 분류입니다.
type ErrorKind string

const (
	KindConnection       ErrorKind = "connection_error"
	KindTimeout          ErrorKind = "timeout_error"
	KindToolNotFound     ErrorKind = "tool_not_found"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindAuthentication   ErrorKind = "authentication_error"
	KindRateLimit        ErrorKind = "rate_limit_error"
	KindServer           ErrorKind = "server_error"
	KindUnknown          ErrorKind = "unknown_error"
)

// Error는 타입화된 MCP 오류입니다.
// 진단을 위해 서버/도구 이름과 원인 오류를 함께 보존합니다.
type Error struct {
	// Kind는 오류 분류입니다.
	Kind ErrorKind
	// Server는 대상 MCP 서버 이름입니다 (선택적).
	Server string
	// Tool은 대상 도구 이름입니다 (선택적).
	Tool string
	// Message는 사람이 읽을 수 있는 설명입니다.
	Message string
	// RetryAfter는 rate limit 오류에서 서버가 지정한 재시도 대기 시간입니다.
	RetryAfter time.Duration
	// Timeout은 timeout 오류를 발생시킨 제한 시간입니다.
	Timeout time.Duration
	// At은 오류 발생 시각입니다.
	At time.Time
	// Err는 원인 오류입니다.
	Err error
}

// Error는 error 인터페이스를 구현합니다.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Server != "" {
		msg += fmt.Sprintf(" (server=%s)", e.Server)
	}
	if e.Tool != "" {
		msg += fmt.Sprintf(" (tool=%s)", e.Tool)
	}
	return msg
}

// Unwrap은 원인 오류를 반환합니다.
func (e *Error) Unwrap() error {
	return e.Err
}

// New는 타입화된 오류를 생성합니다.
func New(kind ErrorKind, server, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Server:  server,
		Message: message,
		At:      time.Now(),
		Err:     cause,
	}
}

// NewConnectionError는 연결 실패 오류를 생성합니다.
func NewConnectionError(server, message string, cause error) *Error {
	return New(KindConnection, server, message, cause)
}

// NewTimeoutError는 타임아웃 오류를 생성합니다.
func NewTimeoutError(server string, timeout time.Duration) *Error {
	e := New(KindTimeout, server, fmt.Sprintf("%s 후 작업 시간 초과", timeout), context.DeadlineExceeded)
	e.Timeout = timeout
	return e
}

// NewToolNotFoundError는 도구 미발견 오류를 생성합니다.
func NewToolNotFoundError(server, tool string) *Error {
	e := New(KindToolNotFound, server, fmt.Sprintf("도구 %q를 찾을 수 없음", tool), nil)
	e.Tool = tool
	return e
}

// NewRateLimitError는 rate limit 오류를 생성합니다.
// retryAfter는 서버가 지정한 재시도 대기 시간입니다 (0 = 지정 없음).
func NewRateLimitError(server string, retryAfter time.Duration) *Error {
	e := New(KindRateLimit, server, "rate limit 초과", nil)
	e.RetryAfter = retryAfter
	return e
}

// KindOf는 오류의 분류를 반환합니다.
// 타입화되지 않은 오류는 KindUnknown으로 분류됩니다.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsTransient는 재시도 대상 오류인지 확인합니다.
// 연결, 타임아웃, rate limit 오류만 일시적 오류로 취급합니다.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindTimeout, KindRateLimit:
		return true
	default:
		return false
	}
}

// Classify는 일반 오류를 타입화된 오류로 변환합니다.
// 이미 타입화된 오류는 그대로 반환합니다.
func Classify(server, tool string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind := KindUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	classified := New(kind, server, err.Error(), err)
	classified.Tool = tool
	return classified
}
