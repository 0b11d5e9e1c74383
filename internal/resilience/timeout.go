package resilience

import (
	"context"
	"errors"
	"time"
)

// WithTimeout은 호출을 제한 시간 내로 제한합니다.
// 시간 초과 시 제한 시간을 담은 타입화된 timeout 오류를 반환합니다.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, server string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(callCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() == context.DeadlineExceeded {
			var zero T
			return zero, NewTimeoutError(server, timeout)
		}
		return result, err
	}
	return result, nil
}
