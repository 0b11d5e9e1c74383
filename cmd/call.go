// call.go는 도구 호출 명령을 구현합니다.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/insajin/anymcp/internal/llm"
	"github.com/insajin/anymcp/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	callServer string
	callScript string
	callDocker string
	callArgs   string
	callJSON   string
	callEnv    []string
)

// callCmd는 도구를 호출하는 명령어입니다.
var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "MCP 도구를 호출합니다",
	Long: `MCP 도구를 호출합니다. 세 가지 대상 중 하나를 지정해야 합니다:

  --server <name>    설치된 서버의 도구 호출
  --script <path>    레지스트리를 거치지 않는 로컬 스크립트 1회 호출
  --docker <image>   레지스트리를 거치지 않는 도커 이미지 1회 호출

인자는 --args "key=value,key2=value2" 또는 --json '{"key":"value"}' 형식으로
전달합니다.`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&callServer, "server", "s", "", "설치된 서버 이름")
	callCmd.Flags().StringVar(&callScript, "script", "", "로컬 스크립트 경로")
	callCmd.Flags().StringVar(&callDocker, "docker", "", "도커 이미지")
	callCmd.Flags().StringVarP(&callArgs, "args", "a", "", "도구 인자 (key=value,key2=value2)")
	callCmd.Flags().StringVar(&callJSON, "json", "", "도구 인자 (JSON 객체)")
	callCmd.Flags().StringArrayVarP(&callEnv, "env", "e", nil,
		"도커 컨테이너에 전달할 환경변수 (K=V 형식, 반복 가능)")
}

// runCall은 call 명령의 실행 로직입니다.
func runCall(cmd *cobra.Command, args []string) error {
	tool := args[0]

	targets := 0
	for _, t := range []string{callServer, callScript, callDocker} {
		if t != "" {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("--server, --script, --docker 중 정확히 하나를 지정하세요")
	}

	toolArgs, err := parseToolArgs(callArgs, callJSON)
	if err != nil {
		return err
	}

	if callServer != "" {
		return callViaManager(cmd, callServer, tool, toolArgs)
	}
	return callAdHoc(cmd, tool, toolArgs)
}

// callViaManager는 설치된 서버의 도구를 매니저를 통해 호출합니다.
func callViaManager(cmd *cobra.Command, server, tool string, toolArgs map[string]any) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, cleanup, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if !ensureStarted(ctx, manager, server) {
		return fmt.Errorf("서버 시작 실패: %s", server)
	}

	result := manager.Call(ctx, server, tool, toolArgs)
	if result == nil {
		return fmt.Errorf("도구 호출 실패: %s/%s", server, tool)
	}

	fmt.Printf("%s %s\n", okStyle.Render("Success:"), llm.FlattenResult(result))
	return nil
}

// callAdHoc은 레지스트리를 거치지 않고 스크립트/도커 대상을 1회 호출합니다.
func callAdHoc(cmd *cobra.Command, tool string, toolArgs map[string]any) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var spec mcp.LaunchSpec
	var name string
	if callScript != "" {
		name = callScript
		// USE_UV=1이면 uv run으로 파이썬 스크립트를 실행합니다.
		if os.Getenv("USE_UV") == "1" {
			spec = mcp.LaunchSpec{Command: "uv", Args: []string{"run", callScript}}
		} else {
			spec = mcp.LaunchSpec{Command: "python", Args: []string{callScript}}
		}
	} else {
		name = callDocker
		envVars, err := parseEnvFlags(callEnv)
		if err != nil {
			return err
		}
		dockerArgs := []string{"run", "-i", "--rm"}
		for k, v := range envVars {
			dockerArgs = append(dockerArgs, "-e", fmt.Sprintf("%s=%s", k, v))
		}
		spec = mcp.LaunchSpec{Command: "docker", Args: append(dockerArgs, callDocker)}
	}

	handle := mcp.NewHandle(name, spec.Command, spec.Args, spec.Env)
	connectCtx, cancel := cfgConnectContext(ctx, cfg)
	defer cancel()

	if err := handle.Connect(connectCtx); err != nil {
		return fmt.Errorf("연결 실패: %w", err)
	}
	defer handle.Cleanup()

	result, err := handle.CallTool(ctx, tool, toolArgs)
	if err != nil {
		return fmt.Errorf("도구 호출 실패: %w", err)
	}

	fmt.Printf("%s %s\n", okStyle.Render("Success:"), llm.FlattenResult(result))
	return nil
}

// parseToolArgs는 --args와 --json 플래그를 도구 인자 맵으로 변환합니다.
func parseToolArgs(kvString, jsonString string) (map[string]any, error) {
	if kvString != "" && jsonString != "" {
		return nil, fmt.Errorf("--args와 --json은 동시에 사용할 수 없습니다")
	}

	if jsonString != "" {
		args := map[string]any{}
		if err := json.Unmarshal([]byte(jsonString), &args); err != nil {
			return nil, fmt.Errorf("잘못된 JSON 인자: %w", err)
		}
		return args, nil
	}

	args := map[string]any{}
	if kvString == "" {
		return args, nil
	}
	for _, pair := range strings.Split(kvString, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("잘못된 --args 형식: %s (key=value,key2=value2)", pair)
		}
		args[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return args, nil
}
