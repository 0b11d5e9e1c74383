package mcp

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/insajin/anymcp/internal/registry"
)

// LaunchSpec은 MCP 서버 서브프로세스 실행 명세입니다.
// 설치 시점에 분류된 Kind에 따라 한 번만 결정되며, 실행마다 재분류하지 않습니다.
type LaunchSpec struct {
	Command string
	Args    []string
	// Env는 프로세스 환경 위에 병합되는 환경 변수입니다 (정의 값이 우선).
	Env map[string]string
}

// BuildLaunchSpec은 서버 정의로부터 실행 명세를 만듭니다.
// docker 종류는 컨테이너 런타임을 통해, local 종류는 소스 형태에 따라
// 패키지 러너(npx) / 파이썬 스크립트 / 원시 명령으로 분기합니다.
func BuildLaunchSpec(def registry.Definition) (LaunchSpec, error) {
	switch def.Kind {
	case registry.KindDocker:
		return dockerLaunchSpec(def), nil
	case registry.KindLocal:
		return localLaunchSpec(def)
	case registry.KindRegistry:
		return LaunchSpec{}, fmt.Errorf("registry 종류는 아직 지원되지 않음: %s", def.Name)
	default:
		return LaunchSpec{}, fmt.Errorf("알 수 없는 서버 종류 %q: %s", def.Kind, def.Name)
	}
}

// dockerLaunchSpec은 컨테이너 이미지 실행 명세를 만듭니다.
// 정의된 환경 변수는 -e KEY=VAL 플래그로 컨테이너에 전달합니다.
func dockerLaunchSpec(def registry.Definition) LaunchSpec {
	args := []string{"run", "-i", "--rm"}

	keys := make([]string, 0, len(def.EnvVars))
	for k := range def.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, def.EnvVars[k]))
	}

	args = append(args, def.Source)
	return LaunchSpec{
		Command: "docker",
		Args:    args,
		Env:     def.EnvVars,
	}
}

// localLaunchSpec은 로컬 명령 실행 명세를 만듭니다.
func localLaunchSpec(def registry.Definition) (LaunchSpec, error) {
	parts := strings.Fields(def.Source)
	if len(parts) == 0 {
		return LaunchSpec{}, fmt.Errorf("빈 local 소스: %s", def.Name)
	}

	switch {
	case parts[0] == "npx":
		return LaunchSpec{
			Command: "npx",
			Args:    parts[1:],
			Env:     def.EnvVars,
		}, nil

	case strings.HasSuffix(def.Source, ".py"):
		// USE_UV=1이면 uv 런처를 사용합니다.
		if os.Getenv("USE_UV") == "1" {
			return LaunchSpec{
				Command: "uv",
				Args:    []string{"run", def.Source},
				Env:     def.EnvVars,
			}, nil
		}
		return LaunchSpec{
			Command: "python",
			Args:    []string{def.Source},
			Env:     def.EnvVars,
		}, nil

	default:
		return LaunchSpec{
			Command: parts[0],
			Args:    parts[1:],
			Env:     def.EnvVars,
		}, nil
	}
}
