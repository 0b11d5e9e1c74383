package resilience

import (
	"sync"
	"time"
)

// DefaultAggregatorCap은 집계기가 보관하는 최대 오류 수입니다.
const DefaultAggregatorCap = 1000

// ErrorStats는 시간 창 내의 오류 통계입니다.
type ErrorStats struct {
	TotalErrors int            `json:"total_errors"`
	WindowHours float64        `json:"time_window_hours"`
	ByKind      map[string]int `json:"by_error_type,omitempty"`
	ByServer    map[string]int `json:"by_server,omitempty"`
	ByTool      map[string]int `json:"by_tool,omitempty"`
	MostRecent  time.Time      `json:"most_recent_error,omitempty"`
}

// Aggregator는 최근 오류를 수집하고 분석하는 관측용 집계기입니다.
// 제어 흐름에는 사용하지 않습니다. 용량 초과 시 가장 오래된 오류부터 제거합니다.
type Aggregator struct {
	maxErrors int

	mu   sync.Mutex
	errs []*Error
}

// NewAggregator는 새로운 오류 집계기를 생성합니다.
func NewAggregator(maxErrors int) *Aggregator {
	if maxErrors <= 0 {
		maxErrors = DefaultAggregatorCap
	}
	return &Aggregator{maxErrors: maxErrors}
}

// Record는 오류를 집계기에 추가합니다. nil은 무시됩니다.
func (a *Aggregator) Record(err *Error) {
	if err == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.errs = append(a.errs, err)
	if len(a.errs) > a.maxErrors {
		a.errs = a.errs[len(a.errs)-a.maxErrors:]
	}
}

// Stats는 지정된 시간 창 내의 오류 통계를 반환합니다.
func (a *Aggregator) Stats(window time.Duration) ErrorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	stats := ErrorStats{
		WindowHours: window.Hours(),
	}

	for _, err := range a.errs {
		if err.At.Before(cutoff) {
			continue
		}

		if stats.ByKind == nil {
			stats.ByKind = make(map[string]int)
			stats.ByServer = make(map[string]int)
			stats.ByTool = make(map[string]int)
		}

		stats.TotalErrors++
		stats.ByKind[string(err.Kind)]++
		if err.Server != "" {
			stats.ByServer[err.Server]++
		}
		if err.Tool != "" {
			stats.ByTool[err.Tool]++
		}
		if err.At.After(stats.MostRecent) {
			stats.MostRecent = err.At
		}
	}

	return stats
}

// Len은 현재 보관 중인 오류 수를 반환합니다.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errs)
}
