// Package registry는 설치된 MCP 서버 정의의 영속 카탈로그를 관리합니다.
// 실행 중인 서버와 무관하게 "어떤 서버가 존재하는지"의 단일 진실 공급원입니다.
package registry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Kind는 MCP 서버 소스 종류입니다.
type Kind string

const (
	// KindDocker는 컨테이너 이미지 기반 서버입니다.
	KindDocker Kind = "docker"
	// KindLocal은 로컬 명령 기반 서버입니다.
	KindLocal Kind = "local"
	// KindRegistry는 예약된 종류입니다. 아직 구현되지 않았습니다.
	KindRegistry Kind = "registry"
)

// Definition은 설치된 MCP 서버 정의입니다.
type Definition struct {
	// Name은 레지스트리 내에서 유일한 서버 이름입니다.
	Name string
	// Kind는 소스 종류입니다 (설치 시점에 한 번 분류되어 영속됩니다).
	Kind Kind
	// Source는 docker 이미지 참조 또는 로컬 명령입니다.
	Source string
	// EnvVars는 실행 시 프로세스 환경 위에 병합되는 환경 변수입니다.
	EnvVars map[string]string
	// Enabled가 false면 자동 시작 대상에서 제외됩니다.
	Enabled bool
	// Description은 표시용 설명입니다.
	Description string
}

// entry는 YAML 파일 내 항목 표현입니다.
type entry struct {
	Type        string            `yaml:"type"`
	Source      string            `yaml:"source"`
	EnvVars     map[string]string `yaml:"env_vars"`
	Enabled     bool              `yaml:"enabled"`
	Description string            `yaml:"description"`
}

// fileFormat은 레지스트리 파일의 최상위 구조입니다.
type fileFormat struct {
	InstalledMCPs map[string]entry `yaml:"installed_mcps"`
}

// Registry는 MCP 서버 정의의 YAML 영속 카탈로그입니다.
// 모든 변경 연산은 성공 반환 전에 디스크 상태를 갱신합니다 (write-through).
type Registry struct {
	configPath string
	mcpsDir    string
	defs       map[string]Definition
}

// New는 레지스트리를 생성하고 설정 파일을 로드합니다.
// mcpsDir는 local 소스 스냅샷이 복사되는 관리 디렉토리입니다.
func New(configPath, mcpsDir string) (*Registry, error) {
	if err := os.MkdirAll(mcpsDir, 0755); err != nil {
		return nil, fmt.Errorf("MCP 디렉토리 생성 실패: %w", err)
	}

	r := &Registry{
		configPath: configPath,
		mcpsDir:    mcpsDir,
		defs:       make(map[string]Definition),
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// load는 설정 파일에서 정의를 로드합니다. 파일이 없으면 빈 상태로 시작합니다.
func (r *Registry) load() error {
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", r.configPath).Msg("[registry] 기존 설정 없음, 새로 시작")
			return nil
		}
		return fmt.Errorf("레지스트리 파일 읽기 실패: %w", err)
	}

	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("레지스트리 파일 파싱 실패: %w", err)
	}

	for name, e := range file.InstalledMCPs {
		envVars := e.EnvVars
		if envVars == nil {
			envVars = make(map[string]string)
		}
		r.defs[name] = Definition{
			Name:        name,
			Kind:        Kind(e.Type),
			Source:      e.Source,
			EnvVars:     envVars,
			Enabled:     e.Enabled,
			Description: e.Description,
		}
	}

	log.Info().Int("count", len(r.defs)).Msg("[registry] 설정 로드 완료")
	return nil
}

// save는 현재 상태를 설정 파일에 기록합니다.
func (r *Registry) save() error {
	file := fileFormat{InstalledMCPs: make(map[string]entry, len(r.defs))}
	for name, def := range r.defs {
		file.InstalledMCPs[name] = entry{
			Type:        string(def.Kind),
			Source:      def.Source,
			EnvVars:     def.EnvVars,
			Enabled:     def.Enabled,
			Description: def.Description,
		}
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("레지스트리 직렬화 실패: %w", err)
	}

	if dir := filepath.Dir(r.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("레지스트리 디렉토리 생성 실패: %w", err)
		}
	}
	if err := os.WriteFile(r.configPath, data, 0644); err != nil {
		return fmt.Errorf("레지스트리 파일 저장 실패: %w", err)
	}
	return nil
}

// Install은 소스 스킴을 분류하여 MCP 서버를 설치합니다.
// 지원 스킴: docker://image, local://path, registry://name (미구현).
// local 소스는 존재를 검증한 뒤 관리 디렉토리로 복사합니다 (설치는 스냅샷).
func (r *Registry) Install(name, source, description string, envVars map[string]string) bool {
	if envVars == nil {
		envVars = make(map[string]string)
	}

	def := Definition{
		Name:        name,
		EnvVars:     envVars,
		Enabled:     true,
		Description: description,
	}

	switch {
	case strings.HasPrefix(source, "docker://"):
		def.Kind = KindDocker
		def.Source = strings.TrimPrefix(source, "docker://")

	case strings.HasPrefix(source, "local://"):
		def.Kind = KindLocal
		path := strings.TrimPrefix(source, "local://")
		copied, err := r.snapshotLocal(name, path)
		if err != nil {
			log.Error().Err(err).Str("name", name).Msg("[registry] local 소스 설치 실패")
			return false
		}
		def.Source = copied

	case strings.HasPrefix(source, "registry://"):
		log.Error().Str("name", name).Msg("[registry] registry 소스는 아직 지원되지 않음")
		return false

	default:
		log.Error().Str("name", name).Str("source", source).Msg("[registry] 알 수 없는 소스 형식")
		return false
	}

	r.defs[name] = def
	if err := r.save(); err != nil {
		delete(r.defs, name)
		log.Error().Err(err).Str("name", name).Msg("[registry] 설치 저장 실패")
		return false
	}

	log.Info().Str("name", name).Str("type", string(def.Kind)).Msg("[registry] 서버 설치 완료")
	return true
}

// snapshotLocal은 로컬 소스 파일을 관리 디렉토리로 복사합니다.
// 이후 원본 파일을 수정해도 설치된 서버에 영향을 주지 않습니다.
func (r *Registry) snapshotLocal(name, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("local 소스 파일을 찾을 수 없음: %w", err)
	}

	target := filepath.Join(r.mcpsDir, name+filepath.Ext(path))
	if target == path {
		return path, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("local 소스 열기 실패: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("스냅샷 생성 실패: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("스냅샷 복사 실패: %w", err)
	}
	return target, nil
}

// Uninstall은 서버 정의와 복사된 스냅샷을 제거합니다.
func (r *Registry) Uninstall(name string) bool {
	def, ok := r.defs[name]
	if !ok {
		log.Warn().Str("name", name).Msg("[registry] 설치되지 않은 서버")
		return false
	}

	// 관리 디렉토리 내의 스냅샷만 제거
	if def.Kind == KindLocal && strings.HasPrefix(def.Source, r.mcpsDir+string(os.PathSeparator)) {
		if err := os.Remove(def.Source); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("name", name).Msg("[registry] 스냅샷 제거 실패")
		}
	}

	delete(r.defs, name)
	if err := r.save(); err != nil {
		r.defs[name] = def
		log.Error().Err(err).Str("name", name).Msg("[registry] 제거 저장 실패")
		return false
	}

	log.Info().Str("name", name).Msg("[registry] 서버 제거 완료")
	return true
}

// Enable은 서버를 활성화하고 영속합니다.
func (r *Registry) Enable(name string) bool {
	return r.setEnabled(name, true)
}

// Disable은 서버를 비활성화하고 영속합니다.
func (r *Registry) Disable(name string) bool {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) bool {
	def, ok := r.defs[name]
	if !ok {
		return false
	}

	prev := def.Enabled
	def.Enabled = enabled
	r.defs[name] = def

	if err := r.save(); err != nil {
		def.Enabled = prev
		r.defs[name] = def
		log.Error().Err(err).Str("name", name).Msg("[registry] 상태 저장 실패")
		return false
	}
	return true
}

// Get은 이름으로 서버 정의를 조회합니다.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// ListAll은 설치된 모든 서버 정의를 반환합니다.
func (r *Registry) ListAll() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	return defs
}

// ListEnabled는 활성화된 서버 정의만 반환합니다.
func (r *Registry) ListEnabled() []Definition {
	var defs []Definition
	for _, def := range r.defs {
		if def.Enabled {
			defs = append(defs, def)
		}
	}
	return defs
}
