package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/insajin/anymcp/internal/registry"
	"github.com/mark3labs/mcp-go/mcp"
)

// fakeHandle은 실제 서브프로세스 없이 ServerHandle을 구현합니다.
type fakeHandle struct {
	mu        sync.Mutex
	tools     []ToolDescriptor
	callErr   error
	listErr   error
	callCount int
	cleanedUp bool
}

func (f *fakeHandle) Connect(ctx context.Context) error { return nil }

func (f *fakeHandle) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tools, nil
}

func (f *fakeHandle) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return mcp.NewToolResultText("ok:" + name), nil
}

func (f *fakeHandle) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) { return nil, nil }

func (f *fakeHandle) GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcp.PromptMessage, error) {
	return nil, nil
}

func (f *fakeHandle) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	return nil, nil
}

func (f *fakeHandle) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanedUp = true
	return nil
}

func (f *fakeHandle) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

// testEnv는 임시 레지스트리와 가짜 다이얼러가 연결된 매니저를 구성합니다.
type testEnv struct {
	reg      *registry.Registry
	manager  *Manager
	handles  map[string]*fakeHandle
	dialErr  map[string]error
	dialMu   sync.Mutex
	dialSeen []string
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	dir := t.TempDir()
	reg, err := registry.New(filepath.Join(dir, "mcp_config.yaml"), filepath.Join(dir, "mcps"))
	if err != nil {
		t.Fatalf("레지스트리 생성 실패: %v", err)
	}

	env := &testEnv{
		reg:     reg,
		handles: make(map[string]*fakeHandle),
		dialErr: make(map[string]error),
	}

	dial := func(ctx context.Context, name string, spec LaunchSpec) (ServerHandle, error) {
		env.dialMu.Lock()
		env.dialSeen = append(env.dialSeen, name)
		env.dialMu.Unlock()

		if err := env.dialErr[name]; err != nil {
			return nil, err
		}
		h, ok := env.handles[name]
		if !ok {
			h = &fakeHandle{}
			env.handles[name] = h
		}
		return h, nil
	}

	opts = append([]Option{WithDialer(dial)}, opts...)
	env.manager = NewManager(reg, opts...)
	return env
}

func (env *testEnv) dialCount() int {
	env.dialMu.Lock()
	defer env.dialMu.Unlock()
	return len(env.dialSeen)
}

// TestManager_Setup은 서버 시작의 성공/실패 경계를 테스트합니다.
func TestManager_Setup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)

	if env.manager.Setup(ctx, "unknown") {
		t.Error("설치되지 않은 서버의 Setup은 false여야 합니다")
	}

	if !env.manager.Setup(ctx, "calc") {
		t.Fatal("설치된 서버의 Setup은 성공해야 합니다")
	}
	if got := env.manager.ActiveServers(); len(got) != 1 || got[0] != "calc" {
		t.Errorf("ActiveServers() = %v, want [calc]", got)
	}

	// 재호출은 중복 실행 없이 성공해야 합니다.
	if !env.manager.Setup(ctx, "calc") {
		t.Error("이미 활성인 서버의 Setup은 true여야 합니다")
	}
	if env.dialCount() != 1 {
		t.Errorf("dial 호출 수 = %d, 이미 활성인 서버는 재연결하지 않아야 합니다", env.dialCount())
	}
}

// TestManager_SetupDisabled는 비활성화된 서버의 시작 거부를 테스트합니다.
func TestManager_SetupDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)
	env.reg.Disable("calc")

	if env.manager.Setup(ctx, "calc") {
		t.Error("비활성화된 서버의 Setup은 false여야 합니다")
	}
	if env.dialCount() != 0 {
		t.Error("비활성화된 서버에는 연결을 시도하지 않아야 합니다")
	}
}

// TestManager_SetupDialFailure는 연결 실패가 false로 투영되는지 테스트합니다.
func TestManager_SetupDialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("flaky", "docker://flaky-image", "", nil)
	env.dialErr["flaky"] = errors.New("connection refused")

	if env.manager.Setup(ctx, "flaky") {
		t.Error("연결 실패 시 Setup은 false여야 합니다")
	}
	if len(env.manager.ActiveServers()) != 0 {
		t.Error("실패한 서버는 활성 목록에 없어야 합니다")
	}

	// 메트릭에 실패가 기록되어야 합니다.
	snapshot := env.manager.Metrics().GetSnapshot()
	if snapshot.SetupFailures != 1 {
		t.Errorf("SetupFailures = %d, want 1", snapshot.SetupFailures)
	}
}

// TestManager_Initialize는 활성화된 서버 일괄 시작과 부분 실패 격리를 테스트합니다.
func TestManager_Initialize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("good", "docker://good-image", "", nil)
	env.reg.Install("bad", "docker://bad-image", "", nil)
	env.reg.Install("off", "docker://off-image", "", nil)
	env.reg.Disable("off")
	env.dialErr["bad"] = errors.New("boom")

	if err := env.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	active := env.manager.ActiveServers()
	if len(active) != 1 || active[0] != "good" {
		t.Errorf("ActiveServers() = %v, 실패한 서버는 나머지를 막지 않아야 합니다", active)
	}

	// 재호출은 no-op이어야 합니다.
	before := env.dialCount()
	if err := env.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() 재호출 error = %v", err)
	}
	if env.dialCount() != before {
		t.Error("Initialize 재호출은 서버를 다시 시작하지 않아야 합니다")
	}
}

// TestManager_Call은 도구 호출의 성공/실패/비활성 경계를 테스트합니다.
func TestManager_Call(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)
	env.manager.Setup(ctx, "calc")

	result := env.manager.Call(ctx, "calc", "add", map[string]any{"a": 1, "b": 2})
	if result == nil {
		t.Fatal("성공한 호출은 결과를 반환해야 합니다")
	}

	// 비활성 서버 호출은 암묵적 시작 없이 nil이어야 합니다.
	if env.manager.Call(ctx, "inactive", "add", nil) != nil {
		t.Error("비활성 서버 호출은 nil이어야 합니다")
	}

	// 호출 실패는 nil로 투영되어야 합니다.
	env.handles["calc"].callErr = errors.New("tool exploded")
	if env.manager.Call(ctx, "calc", "add", nil) != nil {
		t.Error("실패한 호출은 nil이어야 합니다")
	}

	snapshot := env.manager.Metrics().GetSnapshot()
	if snapshot.ToolCallErrors != 1 {
		t.Errorf("ToolCallErrors = %d, want 1", snapshot.ToolCallErrors)
	}

	// 실패가 오류 집계기에 기록되어야 합니다.
	stats := env.manager.ErrorStats(time.Hour)
	if stats.TotalErrors == 0 {
		t.Error("호출 실패가 오류 집계기에 기록되어야 합니다")
	}
}

// TestManager_CallBreaker는 연속 실패 후 서킷 브레이커가 호출을 차단하는지 테스트합니다.
func TestManager_CallBreaker(t *testing.T) {
	env := newTestEnv(t, WithBreakerSettings(2, time.Hour))
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)
	env.manager.Setup(ctx, "calc")
	env.handles["calc"].callErr = errors.New("down")

	env.manager.Call(ctx, "calc", "add", nil)
	env.manager.Call(ctx, "calc", "add", nil)

	// 임계값 도달 후에는 핸들까지 도달하지 않아야 합니다.
	before := env.handles["calc"].calls()
	if env.manager.Call(ctx, "calc", "add", nil) != nil {
		t.Error("브레이커가 열린 상태의 호출은 nil이어야 합니다")
	}
	if env.handles["calc"].calls() != before {
		t.Error("브레이커가 열리면 핸들 호출이 차단되어야 합니다")
	}
}

// TestManager_ListTools는 도구 목록의 빈 목록 투영을 테스트합니다.
func TestManager_ListTools(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)
	env.handles["calc"] = &fakeHandle{tools: []ToolDescriptor{{Name: "add"}, {Name: "sub"}}}
	env.manager.Setup(ctx, "calc")

	tools := env.manager.ListTools(ctx, "calc")
	if len(tools) != 2 {
		t.Errorf("ListTools() 길이 = %d, want 2", len(tools))
	}

	// 비활성 서버는 빈 목록이어야 합니다.
	if got := env.manager.ListTools(ctx, "inactive"); len(got) != 0 {
		t.Errorf("비활성 서버의 ListTools() = %v, want 빈 목록", got)
	}

	// 조회 실패도 빈 목록으로 투영되어야 합니다.
	env.handles["calc"].listErr = errors.New("broken pipe")
	if got := env.manager.ListTools(ctx, "calc"); len(got) != 0 {
		t.Errorf("실패한 ListTools() = %v, want 빈 목록", got)
	}
}

// TestManager_ListAllTools는 서버별 집계와 부분 실패 격리를 테스트합니다.
func TestManager_ListAllTools(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("good", "docker://good-image", "", nil)
	env.reg.Install("bad", "docker://bad-image", "", nil)
	env.handles["good"] = &fakeHandle{tools: []ToolDescriptor{{Name: "add"}}}
	env.handles["bad"] = &fakeHandle{listErr: errors.New("broken")}
	env.manager.Setup(ctx, "good")
	env.manager.Setup(ctx, "bad")

	all := env.manager.ListAllTools(ctx)
	if len(all) != 2 {
		t.Fatalf("ListAllTools() 서버 수 = %d, want 2", len(all))
	}
	if len(all["good"]) != 1 {
		t.Errorf("good 서버 도구 수 = %d, want 1", len(all["good"]))
	}
	if len(all["bad"]) != 0 {
		t.Errorf("실패한 서버는 빈 목록이어야 합니다: %v", all["bad"])
	}
}

// TestManager_StopAndRestart는 중지/재시작 라이프사이클을 테스트합니다.
func TestManager_StopAndRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)
	env.manager.Setup(ctx, "calc")

	if !env.manager.Stop("calc") {
		t.Fatal("활성 서버의 Stop은 성공해야 합니다")
	}
	if !env.handles["calc"].cleanedUp {
		t.Error("Stop은 핸들을 정리해야 합니다")
	}
	if len(env.manager.ActiveServers()) != 0 {
		t.Error("중지된 서버는 활성 목록에서 제거되어야 합니다")
	}

	if env.manager.Stop("calc") {
		t.Error("이미 중지된 서버의 Stop은 false여야 합니다")
	}

	// Restart는 중지 실패를 무시하고 시작해야 합니다.
	if !env.manager.Restart(ctx, "calc") {
		t.Fatal("중지 상태에서의 Restart는 성공해야 합니다")
	}
	if len(env.manager.ActiveServers()) != 1 {
		t.Error("Restart 후 서버가 활성 상태여야 합니다")
	}
}

// TestManager_HealthCheck는 헬스 체크 규칙을 테스트합니다.
func TestManager_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("calc", "docker://calc-image", "", nil)

	// 비활성 서버는 항상 비정상입니다.
	if env.manager.HealthCheck(ctx, "calc") {
		t.Error("비활성 서버의 HealthCheck는 false여야 합니다")
	}

	env.manager.Setup(ctx, "calc")

	// 도구가 하나도 없어도 목록 조회가 성공하면 정상입니다.
	if !env.manager.HealthCheck(ctx, "calc") {
		t.Error("빈 도구 목록도 정상으로 취급해야 합니다")
	}

	env.handles["calc"].listErr = errors.New("hung")
	if env.manager.HealthCheck(ctx, "calc") {
		t.Error("도구 목록 조회 실패는 비정상이어야 합니다")
	}
}

// TestManager_Status는 레지스트리 전체의 상태 집계를 테스트합니다.
func TestManager_Status(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.reg.Install("up", "docker://up-image", "running server", nil)
	env.reg.Install("down", "docker://down-image", "", nil)
	env.reg.Disable("down")
	env.manager.Setup(ctx, "up")

	status := env.manager.Status(ctx)
	if len(status) != 2 {
		t.Fatalf("Status() 서버 수 = %d, 비활성 서버도 포함해야 합니다", len(status))
	}

	up := status["up"]
	if !up.Enabled || !up.Active || !up.Healthy {
		t.Errorf("up 상태 = %+v, want enabled/active/healthy", up)
	}
	if up.Kind != "docker" {
		t.Errorf("Kind = %q, want docker", up.Kind)
	}
	if up.Description != "running server" {
		t.Errorf("Description = %q", up.Description)
	}

	down := status["down"]
	if down.Enabled || down.Active || down.Healthy {
		t.Errorf("down 상태 = %+v, want 모두 false", down)
	}
}

// TestManager_Cleanup은 전체 정리와 Initialize 없는 정리 안전성을 테스트합니다.
func TestManager_Cleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Initialize 없이 호출해도 안전해야 합니다.
	env.manager.Cleanup()

	env.reg.Install("a", "docker://a-image", "", nil)
	env.reg.Install("b", "docker://b-image", "", nil)
	env.manager.Setup(ctx, "a")
	env.manager.Setup(ctx, "b")

	env.manager.Cleanup()
	if len(env.manager.ActiveServers()) != 0 {
		t.Error("Cleanup 후 활성 서버가 없어야 합니다")
	}
	if !env.handles["a"].cleanedUp || !env.handles["b"].cleanedUp {
		t.Error("Cleanup은 모든 핸들을 정리해야 합니다")
	}

	// 정리 후 다시 시작할 수 있어야 합니다.
	if !env.manager.Setup(ctx, "a") {
		t.Error("Cleanup 후 재시작이 가능해야 합니다")
	}
}

// TestManager_CleanupWaitsForSetup은 진행 중인 Setup과 경합하는 Cleanup이
// 해당 Setup이 등록한 핸들까지 정리 대상에 포함하는지 테스트합니다.
func TestManager_CleanupWaitsForSetup(t *testing.T) {
	handle := &fakeHandle{}
	dialing := make(chan struct{})
	release := make(chan struct{})
	dial := func(ctx context.Context, name string, spec LaunchSpec) (ServerHandle, error) {
		close(dialing)
		<-release
		return handle, nil
	}

	env := newTestEnv(t, WithDialer(dial))
	ctx := context.Background()
	env.reg.Install("calc", "docker://calc-image", "", nil)

	setupDone := make(chan bool)
	go func() { setupDone <- env.manager.Setup(ctx, "calc") }()
	<-dialing

	cleanupDone := make(chan struct{})
	go func() {
		env.manager.Cleanup()
		close(cleanupDone)
	}()

	// Setup이 연결 중인 동안 Cleanup이 먼저 끝나면 핸들이 새어 나갑니다.
	select {
	case <-cleanupDone:
		t.Fatal("Cleanup이 진행 중인 Setup을 기다리지 않았습니다")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	if !<-setupDone {
		t.Fatal("Setup이 실패했습니다")
	}
	<-cleanupDone

	handle.mu.Lock()
	cleanedUp := handle.cleanedUp
	handle.mu.Unlock()
	if !cleanedUp {
		t.Error("경합 중 등록된 핸들이 정리되어야 합니다")
	}
	if got := env.manager.ActiveServers(); len(got) != 0 {
		t.Errorf("ActiveServers = %v, want 빈 목록", got)
	}
}
