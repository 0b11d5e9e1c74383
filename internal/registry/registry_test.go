package registry

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestRegistry는 임시 디렉토리에 격리된 레지스트리를 생성합니다.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	dir := t.TempDir()
	r, err := New(filepath.Join(dir, "mcp_config.yaml"), filepath.Join(dir, "mcps"))
	if err != nil {
		t.Fatalf("레지스트리 생성 실패: %v", err)
	}
	return r
}

// TestRegistry_InstallDocker는 docker:// 소스 설치를 테스트합니다.
func TestRegistry_InstallDocker(t *testing.T) {
	r := newTestRegistry(t)

	if !r.Install("github", "docker://ghcr.io/github/github-mcp-server", "GitHub MCP", map[string]string{"GITHUB_TOKEN": "x"}) {
		t.Fatal("docker 소스 설치가 성공해야 합니다")
	}

	def, ok := r.Get("github")
	if !ok {
		t.Fatal("설치된 서버를 조회할 수 있어야 합니다")
	}
	if def.Kind != KindDocker {
		t.Errorf("Kind = %q, want %q", def.Kind, KindDocker)
	}
	if def.Source != "ghcr.io/github/github-mcp-server" {
		t.Errorf("Source = %q, docker:// 접두사가 제거되어야 합니다", def.Source)
	}
	if !def.Enabled {
		t.Error("새로 설치된 서버는 활성화 상태여야 합니다")
	}
	if def.EnvVars["GITHUB_TOKEN"] != "x" {
		t.Errorf("EnvVars = %v, 환경변수가 보존되어야 합니다", def.EnvVars)
	}
}

// TestRegistry_InstallLocalSnapshot은 local:// 소스의 스냅샷 복사를 테스트합니다.
func TestRegistry_InstallLocalSnapshot(t *testing.T) {
	r := newTestRegistry(t)

	// 스냅샷할 원본 스크립트 생성
	srcDir := t.TempDir()
	script := filepath.Join(srcDir, "server.py")
	if err := os.WriteFile(script, []byte("print('mcp')\n"), 0755); err != nil {
		t.Fatalf("원본 스크립트 생성 실패: %v", err)
	}

	if !r.Install("calc", "local://"+script, "", nil) {
		t.Fatal("local 소스 설치가 성공해야 합니다")
	}

	def, _ := r.Get("calc")
	if def.Kind != KindLocal {
		t.Errorf("Kind = %q, want %q", def.Kind, KindLocal)
	}

	// Source는 관리 디렉토리 내 스냅샷을 가리켜야 합니다.
	if def.Source == script {
		t.Error("Source가 원본이 아닌 스냅샷을 가리켜야 합니다")
	}
	if filepath.Ext(def.Source) != ".py" {
		t.Errorf("스냅샷이 확장자를 보존해야 합니다: %s", def.Source)
	}
	if _, err := os.Stat(def.Source); err != nil {
		t.Errorf("스냅샷 파일이 존재해야 합니다: %v", err)
	}

	// 원본 수정이 스냅샷에 영향을 주지 않아야 합니다.
	if err := os.WriteFile(script, []byte("changed\n"), 0755); err != nil {
		t.Fatalf("원본 수정 실패: %v", err)
	}
	data, err := os.ReadFile(def.Source)
	if err != nil {
		t.Fatalf("스냅샷 읽기 실패: %v", err)
	}
	if string(data) != "print('mcp')\n" {
		t.Error("스냅샷은 설치 시점의 내용을 유지해야 합니다")
	}
}

// TestRegistry_InstallLocalMissing은 존재하지 않는 local 소스 설치 실패를 테스트합니다.
func TestRegistry_InstallLocalMissing(t *testing.T) {
	r := newTestRegistry(t)

	if r.Install("ghost", "local:///nonexistent/server.py", "", nil) {
		t.Fatal("존재하지 않는 local 소스 설치는 실패해야 합니다")
	}
	if _, ok := r.Get("ghost"); ok {
		t.Error("실패한 설치는 레지스트리에 남지 않아야 합니다")
	}
}

// TestRegistry_InstallUnsupportedSources는 registry:// 및 알 수 없는 스킴을 테스트합니다.
func TestRegistry_InstallUnsupportedSources(t *testing.T) {
	r := newTestRegistry(t)

	if r.Install("future", "registry://some-server", "", nil) {
		t.Error("registry:// 소스는 아직 지원되지 않아야 합니다")
	}
	if r.Install("weird", "ftp://host/server", "", nil) {
		t.Error("알 수 없는 스킴은 거부되어야 합니다")
	}
	if len(r.ListAll()) != 0 {
		t.Errorf("실패한 설치가 레지스트리에 남음: %v", r.ListAll())
	}
}

// TestRegistry_Reinstall은 같은 이름의 재설치가 정의를 교체하는지 테스트합니다.
func TestRegistry_Reinstall(t *testing.T) {
	r := newTestRegistry(t)

	r.Install("srv", "docker://image:v1", "first", nil)
	r.Install("srv", "docker://image:v2", "second", nil)

	def, _ := r.Get("srv")
	if def.Source != "image:v2" {
		t.Errorf("Source = %q, 재설치가 정의를 교체해야 합니다", def.Source)
	}
	if def.Description != "second" {
		t.Errorf("Description = %q, want %q", def.Description, "second")
	}
	if len(r.ListAll()) != 1 {
		t.Errorf("재설치 후 항목 수 = %d, want 1", len(r.ListAll()))
	}
}

// TestRegistry_Uninstall은 제거와 스냅샷 정리를 테스트합니다.
func TestRegistry_Uninstall(t *testing.T) {
	r := newTestRegistry(t)

	srcDir := t.TempDir()
	script := filepath.Join(srcDir, "tool.py")
	os.WriteFile(script, []byte("x"), 0755)

	r.Install("tool", "local://"+script, "", nil)
	def, _ := r.Get("tool")

	if !r.Uninstall("tool") {
		t.Fatal("설치된 서버 제거는 성공해야 합니다")
	}
	if _, ok := r.Get("tool"); ok {
		t.Error("제거된 서버는 조회되지 않아야 합니다")
	}
	if _, err := os.Stat(def.Source); !os.IsNotExist(err) {
		t.Error("관리 디렉토리의 스냅샷이 함께 제거되어야 합니다")
	}

	// 원본은 남아 있어야 합니다.
	if _, err := os.Stat(script); err != nil {
		t.Error("원본 파일은 제거되지 않아야 합니다")
	}

	if r.Uninstall("tool") {
		t.Error("설치되지 않은 서버 제거는 false를 반환해야 합니다")
	}
}

// TestRegistry_EnableDisable은 활성화 상태 전환을 테스트합니다.
func TestRegistry_EnableDisable(t *testing.T) {
	r := newTestRegistry(t)
	r.Install("srv", "docker://image", "", nil)

	if !r.Disable("srv") {
		t.Fatal("Disable이 성공해야 합니다")
	}
	if def, _ := r.Get("srv"); def.Enabled {
		t.Error("Disable 후 Enabled = true")
	}
	if len(r.ListEnabled()) != 0 {
		t.Error("비활성화된 서버는 ListEnabled에 나타나지 않아야 합니다")
	}

	if !r.Enable("srv") {
		t.Fatal("Enable이 성공해야 합니다")
	}
	if def, _ := r.Get("srv"); !def.Enabled {
		t.Error("Enable 후 Enabled = false")
	}

	if r.Enable("nonexistent") {
		t.Error("설치되지 않은 서버의 Enable은 false를 반환해야 합니다")
	}
}

// TestRegistry_Persistence는 write-through 영속과 재로드를 테스트합니다.
func TestRegistry_Persistence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mcp_config.yaml")
	mcpsDir := filepath.Join(dir, "mcps")

	r1, err := New(configPath, mcpsDir)
	if err != nil {
		t.Fatalf("레지스트리 생성 실패: %v", err)
	}
	r1.Install("github", "docker://ghcr.io/github/github-mcp-server", "GitHub", map[string]string{"TOKEN": "t"})
	r1.Disable("github")

	// 새 인스턴스로 다시 로드
	r2, err := New(configPath, mcpsDir)
	if err != nil {
		t.Fatalf("레지스트리 재로드 실패: %v", err)
	}

	def, ok := r2.Get("github")
	if !ok {
		t.Fatal("재로드 후 설치된 서버가 보존되어야 합니다")
	}
	if def.Kind != KindDocker {
		t.Errorf("Kind = %q, want %q", def.Kind, KindDocker)
	}
	if def.Enabled {
		t.Error("비활성화 상태가 영속되어야 합니다")
	}
	if def.EnvVars["TOKEN"] != "t" {
		t.Errorf("EnvVars가 영속되어야 합니다: %v", def.EnvVars)
	}
}
