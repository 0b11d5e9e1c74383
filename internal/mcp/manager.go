package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/insajin/anymcp/internal/bus"
	"github.com/insajin/anymcp/internal/metrics"
	"github.com/insajin/anymcp/internal/registry"
	"github.com/insajin/anymcp/internal/resilience"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

// DialFunc는 실행 명세로부터 연결된 핸들을 생성합니다. 테스트에서 교체 가능합니다.
type DialFunc func(ctx context.Context, name string, spec LaunchSpec) (ServerHandle, error)

// defaultDial은 실제 서브프로세스 핸들을 생성하고 연결합니다.
func defaultDial(ctx context.Context, name string, spec LaunchSpec) (ServerHandle, error) {
	h := NewHandle(name, spec.Command, spec.Args, spec.Env)
	if err := h.Connect(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// ServerStatus는 단일 서버의 집계 상태입니다.
type ServerStatus struct {
	Kind        string `json:"type"`
	Enabled     bool   `json:"enabled"`
	Active      bool   `json:"active"`
	Healthy     bool   `json:"healthy"`
	Description string `json:"description"`
}

// Manager는 레지스트리와 실행 중인 연결을 잇는 MCP 라이프사이클 매니저입니다.
// 서브프로세스를 시작/중지할 수 있는 유일한 컴포넌트이며, 도구 호출의 단일 라우터입니다.
// 이름당 최대 하나의 활성 연결 불변식을 이름별 뮤텍스로 보장합니다.
type Manager struct {
	registry *registry.Registry
	dial     DialFunc
	events   bus.Sink
	metrics  *metrics.Metrics

	connectTimeout time.Duration
	callTimeout    time.Duration

	retryPolicy      resilience.RetryPolicy
	aggregator       *resilience.Aggregator
	failureThreshold int
	recoveryTimeout  time.Duration

	// mu는 active/locks/breakers 맵과 initialized 플래그를 보호합니다.
	mu          sync.Mutex
	active      map[string]ServerHandle
	locks       map[string]*sync.Mutex
	breakers    map[string]*resilience.Breaker
	initialized bool
}

// Option은 Manager 생성 옵션입니다.
type Option func(*Manager)

// WithDialer는 핸들 생성 함수를 교체합니다 (테스트용).
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithEventSink는 이벤트 발행 대상을 설정합니다.
func WithEventSink(sink bus.Sink) Option {
	return func(m *Manager) { m.events = sink }
}

// WithMetrics는 메트릭 추적기를 설정합니다.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithRetryPolicy는 도구 호출의 재시도 정책을 설정합니다.
func WithRetryPolicy(policy resilience.RetryPolicy) Option {
	return func(m *Manager) { m.retryPolicy = policy }
}

// WithBreakerSettings는 서버별 서킷 브레이커 임계값을 설정합니다.
func WithBreakerSettings(failureThreshold int, recoveryTimeout time.Duration) Option {
	return func(m *Manager) {
		if failureThreshold > 0 {
			m.failureThreshold = failureThreshold
		}
		if recoveryTimeout > 0 {
			m.recoveryTimeout = recoveryTimeout
		}
	}
}

// WithTimeouts는 연결/호출 타임아웃을 설정합니다.
func WithTimeouts(connect, call time.Duration) Option {
	return func(m *Manager) {
		if connect > 0 {
			m.connectTimeout = connect
		}
		if call > 0 {
			m.callTimeout = call
		}
	}
}

// NewManager는 새로운 라이프사이클 매니저를 생성합니다.
func NewManager(reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry:       reg,
		dial:           defaultDial,
		events:         bus.NopSink{},
		metrics:        metrics.New(),
		connectTimeout: DefaultConnectTimeout,
		callTimeout:    60 * time.Second,

		retryPolicy:      resilience.DefaultRetryPolicy(),
		aggregator:       resilience.NewAggregator(resilience.DefaultAggregatorCap),
		failureThreshold: 5,
		recoveryTimeout:  60 * time.Second,

		active:   make(map[string]ServerHandle),
		locks:    make(map[string]*sync.Mutex),
		breakers: make(map[string]*resilience.Breaker),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Metrics는 매니저의 메트릭 추적기를 반환합니다.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Registry는 매니저가 사용하는 레지스트리를 반환합니다.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// ErrorStats는 주어진 시간 창의 오류 통계를 반환합니다.
func (m *Manager) ErrorStats(window time.Duration) resilience.ErrorStats {
	return m.aggregator.Stats(window)
}

// breaker는 서버 이름별 서킷 브레이커를 반환합니다.
func (m *Manager) breaker(name string) *resilience.Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breakers[name]
	if !ok {
		b = resilience.NewBreaker(m.failureThreshold, m.recoveryTimeout)
		m.breakers[name] = b
	}
	return b
}

// recordError는 오류를 분류하여 집계기에 기록하고 분류 결과를 반환합니다.
func (m *Manager) recordError(server, tool string, err error) *resilience.Error {
	classified := resilience.Classify(server, tool, err)
	m.aggregator.Record(classified)
	return classified
}

// nameLock은 서버 이름별 뮤텍스를 반환합니다.
// 같은 이름에 대한 Setup/Stop/Restart가 서로 경합하지 않도록 직렬화합니다.
func (m *Manager) nameLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[name] = lock
	}
	return lock
}

// getActive는 활성 핸들을 조회합니다.
func (m *Manager) getActive(name string) (ServerHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[name]
	return h, ok
}

// Initialize는 활성화된 모든 서버를 시작합니다.
// 개별 서버의 시작 실패는 로그 후 건너뛰며, 나머지 서버의 시작을 막지 않습니다.
// 재호출은 no-op입니다.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	enabled := m.registry.ListEnabled()
	log.Info().Int("count", len(enabled)).Msg("[mcp] 활성화된 서버 초기화 시작")

	for _, def := range enabled {
		if !m.Setup(ctx, def.Name) {
			log.Warn().Str("name", def.Name).Msg("[mcp] 서버 시작 실패, 건너뜀")
		}
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	log.Info().Msg("[mcp] 매니저 초기화 완료")
	return nil
}

// Setup은 이름으로 서버를 시작합니다.
// 이미 활성 상태면 중복 실행 없이 true를 반환합니다.
// 정의가 없거나 비활성화된 경우, 또는 연결 실패 시 false를 반환합니다 (로그만, raise 없음).
func (m *Manager) Setup(ctx context.Context, name string) bool {
	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.getActive(name); ok {
		log.Info().Str("name", name).Msg("[mcp] 이미 활성 상태")
		return true
	}

	m.metrics.SetupAttempts.Add(1)

	def, ok := m.registry.Get(name)
	if !ok {
		m.metrics.SetupFailures.Add(1)
		log.Error().Str("name", name).Msg("[mcp] 설치되지 않은 서버")
		return false
	}
	if !def.Enabled {
		m.metrics.SetupFailures.Add(1)
		log.Warn().Str("name", name).Msg("[mcp] 비활성화된 서버")
		return false
	}

	spec, err := BuildLaunchSpec(def)
	if err != nil {
		m.metrics.SetupFailures.Add(1)
		log.Error().Err(err).Str("name", name).Msg("[mcp] 실행 명세 생성 실패")
		return false
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	handle, err := m.dial(connectCtx, name, spec)
	if err != nil {
		m.metrics.SetupFailures.Add(1)
		m.recordError(name, "", err)
		log.Error().Err(err).Str("name", name).Msg("[mcp] 서버 연결 실패")
		return false
	}

	m.mu.Lock()
	m.active[name] = handle
	m.mu.Unlock()

	m.metrics.SetupSuccesses.Add(1)
	m.publishEvent(bus.Event{Type: bus.EventServerStarted, Server: name, OK: true})
	log.Info().Str("name", name).Msg("[mcp] 서버 시작 완료")
	return true
}

// Call은 활성 서버의 도구를 호출합니다.
// 서버가 활성 상태가 아니면 즉시 nil을 반환하며, 암묵적으로 시작하지 않습니다.
// 호출 실패도 nil로 투영되고 원인은 로그로만 남습니다.
func (m *Manager) Call(ctx context.Context, name, tool string, args map[string]any) *mcpgo.CallToolResult {
	handle, ok := m.getActive(name)
	if !ok {
		log.Error().Str("name", name).Msg("[mcp] 활성 상태가 아닌 서버")
		return nil
	}

	m.metrics.ToolCalls.Add(1)

	// 서킷 브레이커 → 재시도 → 호출 타임아웃 순으로 감쌉니다.
	// 일시적 오류(연결/타임아웃/레이트 리밋)만 재시도 대상입니다.
	result, err := resilience.Guard(ctx, m.breaker(name), func(ctx context.Context) (*mcpgo.CallToolResult, error) {
		return resilience.Retry(ctx, m.retryPolicy, func(ctx context.Context) (*mcpgo.CallToolResult, error) {
			return resilience.WithTimeout(ctx, m.callTimeout, name, func(ctx context.Context) (*mcpgo.CallToolResult, error) {
				return handle.CallTool(ctx, tool, args)
			})
		})
	})
	if err != nil {
		m.metrics.ToolCallErrors.Add(1)
		m.recordError(name, tool, err)
		m.publishEvent(bus.Event{Type: bus.EventToolFailed, Server: name, Tool: tool, Detail: err.Error()})
		log.Error().Err(err).Str("name", name).Str("tool", tool).Msg("[mcp] 도구 호출 실패")
		return nil
	}

	m.publishEvent(bus.Event{Type: bus.EventToolCalled, Server: name, Tool: tool, OK: true})
	log.Info().Str("name", name).Str("tool", tool).Msg("[mcp] 도구 호출 성공")
	return result
}

// ListTools는 활성 서버의 도구 목록을 반환합니다. 실패 시 빈 목록을 반환합니다.
func (m *Manager) ListTools(ctx context.Context, name string) []ToolDescriptor {
	handle, ok := m.getActive(name)
	if !ok {
		log.Error().Str("name", name).Msg("[mcp] 활성 상태가 아닌 서버")
		return []ToolDescriptor{}
	}

	tools, err := handle.ListTools(ctx)
	if err != nil {
		m.recordError(name, "", err)
		log.Error().Err(err).Str("name", name).Msg("[mcp] 도구 목록 조회 실패")
		return []ToolDescriptor{}
	}
	return tools
}

// ListAllTools는 모든 활성 서버의 도구 목록을 반환합니다.
// 개별 서버의 실패는 해당 이름의 빈 목록으로만 나타나며, 전체 집계를 중단시키지 않습니다.
func (m *Manager) ListAllTools(ctx context.Context) map[string][]ToolDescriptor {
	all := make(map[string][]ToolDescriptor)
	for _, name := range m.ActiveServers() {
		all[name] = m.ListTools(ctx, name)
	}
	return all
}

// ActiveServers는 현재 활성 서버 이름 목록을 반환합니다.
func (m *Manager) ActiveServers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	return names
}

// Stop은 서버를 중지하고 활성 맵에서 제거합니다. 활성 상태가 아니면 false입니다.
func (m *Manager) Stop(name string) bool {
	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	handle, ok := m.getActive(name)
	if !ok {
		log.Warn().Str("name", name).Msg("[mcp] 활성 상태가 아닌 서버")
		return false
	}

	if err := handle.Cleanup(); err != nil {
		log.Error().Err(err).Str("name", name).Msg("[mcp] 서버 중지 실패")
		return false
	}

	m.mu.Lock()
	delete(m.active, name)
	m.mu.Unlock()

	m.metrics.ServersStopped.Add(1)
	m.publishEvent(bus.Event{Type: bus.EventServerStopped, Server: name, OK: true})
	log.Info().Str("name", name).Msg("[mcp] 서버 중지 완료")
	return true
}

// Restart는 서버를 중지 후 다시 시작합니다. 중지 결과는 무시합니다.
// 중지와 시작 사이에 이름이 비활성인 관찰 가능한 틈이 있습니다.
func (m *Manager) Restart(ctx context.Context, name string) bool {
	m.metrics.Restarts.Add(1)
	m.Stop(name)
	return m.Setup(ctx, name)
}

// HealthCheck는 서버 상태를 확인합니다.
// 활성 상태가 아니면 false, 도구 목록 조회가 실패하면 false입니다.
// 비어있지만 성공한 도구 목록은 건강한 것으로 취급합니다.
func (m *Manager) HealthCheck(ctx context.Context, name string) bool {
	handle, ok := m.getActive(name)
	if !ok {
		return false
	}

	m.metrics.HealthChecks.Add(1)

	if _, err := handle.ListTools(ctx); err != nil {
		m.metrics.HealthCheckFailures.Add(1)
		log.Warn().Err(err).Str("name", name).Msg("[mcp] 헬스 체크 실패")
		return false
	}
	return true
}

// Status는 레지스트리 전체(활성 여부와 무관)의 집계 상태를 반환합니다.
// healthy는 활성 서버에 대해서만 계산되며, 비활성 서버는 항상 false입니다.
func (m *Manager) Status(ctx context.Context) map[string]ServerStatus {
	status := make(map[string]ServerStatus)

	for _, def := range m.registry.ListAll() {
		_, isActive := m.getActive(def.Name)
		healthy := false
		if isActive {
			healthy = m.HealthCheck(ctx, def.Name)
		}

		status[def.Name] = ServerStatus{
			Kind:        string(def.Kind),
			Enabled:     def.Enabled,
			Active:      isActive,
			Healthy:     healthy,
			Description: def.Description,
		}
	}
	return status
}

// Cleanup은 모든 활성 핸들을 정리하고 매니저를 초기 상태로 되돌립니다.
// Initialize가 호출되지 않았어도 안전합니다.
// 진행 중인 Setup/Stop이 끝날 때까지 기다린 뒤 스냅샷을 뜨므로,
// 경합 중이던 Setup이 등록한 핸들도 정리 대상에 포함됩니다.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	names := make([]string, 0, len(m.locks))
	for name := range m.locks {
		names = append(names, name)
	}
	m.mu.Unlock()

	// 이름 순 고정 획득으로 동시 Cleanup 간 교착을 방지합니다.
	sort.Strings(names)
	held := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		lock := m.nameLock(name)
		lock.Lock()
		held = append(held, lock)
	}

	m.mu.Lock()
	handles := make(map[string]ServerHandle, len(m.active))
	for name, h := range m.active {
		handles[name] = h
	}
	m.active = make(map[string]ServerHandle)
	m.initialized = false
	m.mu.Unlock()

	for name, handle := range handles {
		if err := handle.Cleanup(); err != nil {
			log.Error().Err(err).Str("name", name).Msg("[mcp] 핸들 정리 실패")
		}
	}

	for _, lock := range held {
		lock.Unlock()
	}

	log.Info().Msg("[mcp] 매니저 정리 완료")
}

// publishEvent는 이벤트 발행 실패를 로그로만 처리합니다.
func (m *Manager) publishEvent(ev bus.Event) {
	if err := m.events.Publish(ev); err != nil {
		log.Debug().Err(err).Str("type", ev.Type).Msg("[mcp] 이벤트 발행 실패")
	}
}
