package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestWithTimeout은 제한 시간 초과 시 타입화된 timeout 오류 변환을 테스트합니다.
func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	t.Run("제한 시간 내 성공", func(t *testing.T) {
		result, err := WithTimeout(ctx, time.Second, "calc", func(ctx context.Context) (string, error) {
			return "fast", nil
		})
		if err != nil || result != "fast" {
			t.Errorf("result = %q, err = %v", result, err)
		}
	})

	t.Run("시간 초과", func(t *testing.T) {
		_, err := WithTimeout(ctx, 5*time.Millisecond, "calc", func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "slow", nil
			}
		})

		var typed *Error
		if !errors.As(err, &typed) || typed.Kind != KindTimeout {
			t.Fatalf("err = %v, want timeout 오류", err)
		}
		if typed.Server != "calc" {
			t.Errorf("Server = %q, want calc", typed.Server)
		}
		if !IsTransient(err) {
			t.Error("timeout 오류는 일시적 오류여야 합니다")
		}
	})

	t.Run("함수 자체의 오류는 그대로", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := WithTimeout(ctx, time.Second, "calc", func(ctx context.Context) (string, error) {
			return "", boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want 원본 오류", err)
		}
	})
}
