package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState는 서킷 브레이커 상태입니다.
type BreakerState int32

const (
	// StateClosed는 정상 상태입니다. 모든 호출이 통과합니다.
	StateClosed BreakerState = iota
	// StateOpen은 차단 상태입니다. 회복 시간이 지날 때까지 모든 호출을 거부합니다.
	StateOpen
	// StateHalfOpen은 시험 상태입니다. 단일 시험 호출만 허용합니다.
	StateHalfOpen
)

// String은 BreakerState의 문자열 표현을 반환합니다.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker는 반복 실패하는 대상에 대한 호출을 차단하는 서킷 브레이커입니다.
// CLOSED → OPEN → HALF_OPEN → CLOSED 전이를 따릅니다.
type Breaker struct {
	// failureThreshold는 OPEN으로 전이하는 연속 실패 횟수입니다.
	failureThreshold int
	// recoveryTimeout은 OPEN 상태 유지 시간입니다.
	recoveryTimeout time.Duration

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	// trialInFlight는 HALF_OPEN 시험 호출이 진행 중인지 여부입니다.
	trialInFlight bool
}

// NewBreaker는 새로운 서킷 브레이커를 생성합니다.
func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
}

// State는 현재 브레이커 상태를 반환합니다.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// allow는 호출 허용 여부를 판정합니다.
// OPEN 상태에서 회복 시간이 지났으면 HALF_OPEN으로 전이하고,
// HALF_OPEN에서는 단일 시험 호출만 허용합니다.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) <= b.recoveryTimeout {
			return New(KindServer, "", "서킷 브레이커 OPEN 상태, 호출 거부", nil)
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		log.Info().Msg("[resilience] 서킷 브레이커 HALF_OPEN 전이")
	case StateHalfOpen:
		if b.trialInFlight {
			return New(KindServer, "", "서킷 브레이커 HALF_OPEN 시험 진행 중, 호출 거부", nil)
		}
		b.trialInFlight = true
	}
	return nil
}

// onSuccess는 호출 성공을 기록합니다. 실패 카운트를 초기화합니다.
func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateClosed
		log.Info().Msg("[resilience] 서킷 브레이커 CLOSED 전이")
	}
	b.trialInFlight = false
	b.failures = 0
}

// onFailure는 호출 실패를 기록합니다.
// 임계값 도달 또는 HALF_OPEN 시험 실패 시 OPEN으로 전이합니다.
func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	b.trialInFlight = false

	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.state = StateOpen
		log.Warn().Int("failures", b.failures).Msg("[resilience] 서킷 브레이커 OPEN 전이")
	}
}

// Guard는 브레이커를 통해 호출을 실행합니다.
// OPEN 상태에서는 대상 함수를 호출하지 않고 즉시 거부합니다.
func Guard[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}

	result, err := fn(ctx)
	if err != nil {
		b.onFailure()
		return zero, err
	}

	b.onSuccess()
	return result, nil
}
