// Package metrics는 MCP 라이프사이클과 도구 호출의 운영 메트릭을 추적합니다.
// 모든 필드는 동시 접근에 안전합니다.
package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Metrics는 매니저 운영 메트릭입니다.
type Metrics struct {
	// 라이프사이클 메트릭
	SetupAttempts  atomic.Int64
	SetupSuccesses atomic.Int64
	SetupFailures  atomic.Int64
	ServersStopped atomic.Int64
	Restarts       atomic.Int64

	// 호출 메트릭
	ToolCalls      atomic.Int64
	ToolCallErrors atomic.Int64

	// 헬스 체크 메트릭
	HealthChecks        atomic.Int64
	HealthCheckFailures atomic.Int64

	startTime time.Time
}

// New는 새로운 메트릭 추적기를 생성합니다.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Snapshot은 특정 시점의 메트릭 복사본입니다.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	Uptime              string    `json:"uptime"`
	SetupAttempts       int64     `json:"setup_attempts"`
	SetupSuccesses      int64     `json:"setup_successes"`
	SetupFailures       int64     `json:"setup_failures"`
	ServersStopped      int64     `json:"servers_stopped"`
	Restarts            int64     `json:"restarts"`
	ToolCalls           int64     `json:"tool_calls"`
	ToolCallErrors      int64     `json:"tool_call_errors"`
	HealthChecks        int64     `json:"health_checks"`
	HealthCheckFailures int64     `json:"health_check_failures"`
}

// GetSnapshot은 현재 메트릭의 스냅샷을 반환합니다.
func (m *Metrics) GetSnapshot() Snapshot {
	return Snapshot{
		Timestamp:           time.Now(),
		Uptime:              time.Since(m.startTime).Round(time.Second).String(),
		SetupAttempts:       m.SetupAttempts.Load(),
		SetupSuccesses:      m.SetupSuccesses.Load(),
		SetupFailures:       m.SetupFailures.Load(),
		ServersStopped:      m.ServersStopped.Load(),
		Restarts:            m.Restarts.Load(),
		ToolCalls:           m.ToolCalls.Load(),
		ToolCallErrors:      m.ToolCallErrors.Load(),
		HealthChecks:        m.HealthChecks.Load(),
		HealthCheckFailures: m.HealthCheckFailures.Load(),
	}
}

// ToJSON은 스냅샷을 JSON으로 직렬화합니다.
func (m *Metrics) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m.GetSnapshot(), "", "  ")
}
