// install.go는 MCP 서버 설치/제거/활성화 명령을 구현합니다.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	installDesc string
	installEnv  []string
)

// installCmd는 MCP 서버를 레지스트리에 설치하는 명령어입니다.
var installCmd = &cobra.Command{
	Use:   "install <name> <source>",
	Short: "MCP 서버를 설치합니다",
	Long: `MCP 서버를 레지스트리에 설치합니다.

지원하는 소스 형식:
  docker://<image>     도커 이미지로 실행되는 서버
  local://<command>    로컬 명령/스크립트로 실행되는 서버

local:// 소스가 존재하는 파일을 가리키면 관리 디렉토리로 스냅샷이 복사됩니다.
registry:// 소스는 아직 지원하지 않습니다.`,
	Args: cobra.ExactArgs(2),
	RunE: runInstall,
}

// uninstallCmd는 MCP 서버를 제거하는 명령어입니다.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "MCP 서버를 제거합니다",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

// enableCmd는 MCP 서버를 활성화하는 명령어입니다.
var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "MCP 서버를 활성화합니다",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnable,
}

// disableCmd는 MCP 서버를 비활성화하는 명령어입니다.
var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "MCP 서버를 비활성화합니다",
	Long: `MCP 서버를 비활성화합니다.

비활성화는 레지스트리 항목만 변경하며, 이미 실행 중인 서버를 중지하지 않습니다.
실행 중인 서버를 중지하려면 stop 명령을 사용하세요.`,
	Args: cobra.ExactArgs(1),
	RunE: runDisable,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)

	installCmd.Flags().StringVarP(&installDesc, "desc", "d", "", "서버 설명")
	installCmd.Flags().StringArrayVarP(&installEnv, "env", "e", nil,
		"서버에 전달할 환경변수 (K=V 형식, 반복 가능)")
}

// runInstall은 install 명령의 실행 로직입니다.
func runInstall(cmd *cobra.Command, args []string) error {
	name, source := args[0], args[1]

	envVars, err := parseEnvFlags(installEnv)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	if !reg.Install(name, source, installDesc, envVars) {
		return fmt.Errorf("설치 실패: %s (%s)", name, source)
	}

	fmt.Printf("%s 설치 완료: %s\n", okStyle.Render("✓"), name)
	return nil
}

// runUninstall은 uninstall 명령의 실행 로직입니다.
func runUninstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	if !reg.Uninstall(name) {
		return fmt.Errorf("제거 실패: %s (설치되지 않은 서버)", name)
	}

	fmt.Printf("%s 제거 완료: %s\n", okStyle.Render("✓"), name)
	return nil
}

// runEnable은 enable 명령의 실행 로직입니다.
func runEnable(cmd *cobra.Command, args []string) error {
	return setEnabled(args[0], true)
}

// runDisable은 disable 명령의 실행 로직입니다.
func runDisable(cmd *cobra.Command, args []string) error {
	return setEnabled(args[0], false)
}

// setEnabled는 활성화 상태 변경의 공통 로직입니다.
func setEnabled(name string, enabled bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	var ok bool
	if enabled {
		ok = reg.Enable(name)
	} else {
		ok = reg.Disable(name)
	}
	if !ok {
		return fmt.Errorf("설치되지 않은 서버: %s", name)
	}

	state := "활성화"
	if !enabled {
		state = "비활성화"
	}
	fmt.Printf("%s %s %s 완료\n", okStyle.Render("✓"), name, state)
	return nil
}

// parseEnvFlags는 K=V 형식의 환경변수 플래그를 파싱합니다.
func parseEnvFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	envVars := make(map[string]string, len(flags))
	for _, kv := range flags {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("잘못된 환경변수 형식: %s (K=V 형식이어야 합니다)", kv)
		}
		envVars[key] = value
	}
	return envVars, nil
}
