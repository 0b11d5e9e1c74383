package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestClassify는 일반 오류의 타입화 변환을 테스트합니다.
func TestClassify(t *testing.T) {
	t.Run("nil은 nil", func(t *testing.T) {
		if got := Classify("calc", "add", nil); got != nil {
			t.Errorf("Classify(nil) = %v, want nil", got)
		}
	})

	t.Run("타입화된 오류는 그대로", func(t *testing.T) {
		original := NewConnectionError("calc", "down", nil)
		wrapped := fmt.Errorf("호출 실패: %w", original)
		if got := Classify("other", "", wrapped); got != original {
			t.Errorf("Classify() = %v, 원본 오류를 반환해야 합니다", got)
		}
	})

	t.Run("데드라인 초과는 timeout", func(t *testing.T) {
		got := Classify("calc", "add", context.DeadlineExceeded)
		if got.Kind != KindTimeout {
			t.Errorf("Kind = %v, want KindTimeout", got.Kind)
		}
		if got.Server != "calc" || got.Tool != "add" {
			t.Errorf("Server/Tool = %q/%q, want calc/add", got.Server, got.Tool)
		}
	})

	t.Run("일반 오류는 unknown", func(t *testing.T) {
		got := Classify("calc", "", errors.New("mystery"))
		if got.Kind != KindUnknown {
			t.Errorf("Kind = %v, want KindUnknown", got.Kind)
		}
	})
}

// TestIsTransient는 재시도 대상 판정을 테스트합니다.
func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"연결 오류", NewConnectionError("s", "down", nil), true},
		{"타임아웃 오류", NewTimeoutError("s", time.Second), true},
		{"rate limit 오류", NewRateLimitError("s", time.Second), true},
		{"데드라인 초과", context.DeadlineExceeded, true},
		{"도구 없음", NewToolNotFoundError("s", "t"), false},
		{"인증 오류", New(KindAuthentication, "s", "denied", nil), false},
		{"일반 오류", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestError_Unwrap은 오류 체인 순회를 테스트합니다.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewConnectionError("calc", "wrapper", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is가 원인 오류를 찾아야 합니다")
	}
	if !strings.Contains(err.Error(), "calc") {
		t.Errorf("Error() = %q, 서버 이름을 포함해야 합니다", err.Error())
	}
}
