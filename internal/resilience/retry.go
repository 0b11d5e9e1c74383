package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RetryPolicy는 지수 백오프 재시도 정책입니다.
type RetryPolicy struct {
	// MaxAttempts는 최대 시도 횟수입니다 (1 = 재시도 없음).
	MaxAttempts int
	// InitialDelay는 첫 재시도까지의 지연 시간입니다.
	InitialDelay time.Duration
	// BackoffMultiplier는 지수 백오프 배수입니다.
	BackoffMultiplier float64
	// MaxDelay는 최대 지연 시간입니다 (0 = 제한 없음).
	MaxDelay time.Duration
}

// DefaultRetryPolicy는 기본 재시도 정책을 반환합니다.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          60 * time.Second,
	}
}

// Retry는 일시적 오류(연결, 타임아웃, rate limit)에 대해서만 재시도합니다.
// 그 외의 오류는 즉시 전파되며, 모든 시도가 실패하면 마지막 일시적 오류를 반환합니다.
// rate limit 오류에 RetryAfter가 지정된 경우 계산된 백오프 대신 그 값을 사용합니다.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attemptID := uuid.NewString()
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		// rate limit 오류는 서버 지정 대기 시간을 우선합니다.
		wait := delay
		var typed *Error
		if errors.As(err, &typed) && typed.Kind == KindRateLimit && typed.RetryAfter > 0 {
			wait = typed.RetryAfter
		}

		log.Warn().
			Str("attempt_id", attemptID).
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("[resilience] 일시적 오류, 재시도 대기")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, lastErr
}
