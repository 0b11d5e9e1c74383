// lifecycle.go는 서버 시작/중지/재시작 명령을 구현합니다.
package cmd

import (
	"context"
	"fmt"

	"github.com/insajin/anymcp/internal/mcp"
	"github.com/spf13/cobra"
)

// startCmd는 MCP 서버를 시작하는 명령어입니다.
var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "MCP 서버를 시작합니다",
	Long: `설치된 MCP 서버를 stdio 서브프로세스로 시작하고 핸드셰이크를 수행합니다.

서버 프로세스는 명령 세션 동안만 유지됩니다. 지속 실행이 필요하면
serve 명령으로 매니저 세션을 여세요.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

// stopCmd는 MCP 서버를 중지하는 명령어입니다.
var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "실행 중인 MCP 서버를 중지합니다",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

// restartCmd는 MCP 서버를 재시작하는 명령어입니다.
var restartCmd = &cobra.Command{
	Use:   "restart <name>",
	Short: "MCP 서버를 재시작합니다",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
}

// runStart는 start 명령의 실행 로직입니다.
func runStart(cmd *cobra.Command, args []string) error {
	name := args[0]
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

	if !ensureStarted(ctx, manager, name) {
		return fmt.Errorf("서버 시작 실패: %s", name)
	}

	healthy := manager.HealthCheck(ctx, name)
	fmt.Printf("%s 서버 시작됨: %s (healthy: %s)\n",
		okStyle.Render("✓"), name, onOff(healthy, "yes", "no"))
	return nil
}

// runStop은 stop 명령의 실행 로직입니다.
func runStop(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, cleanup, err := newManager(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if !manager.Stop(name) {
		return fmt.Errorf("서버 중지 실패: %s (이 세션에서 활성 상태가 아님)", name)
	}

	fmt.Printf("%s 서버 중지됨: %s\n", okStyle.Render("✓"), name)
	return nil
}

// runRestart는 restart 명령의 실행 로직입니다.
func runRestart(cmd *cobra.Command, args []string) error {
	name := args[0]
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

	ensureStarted(ctx, manager, name)

	if !manager.Restart(ctx, name) {
		return fmt.Errorf("서버 재시작 실패: %s", name)
	}

	fmt.Printf("%s 서버 재시작됨: %s\n", okStyle.Render("✓"), name)
	return nil
}

// ensureStarted는 서버가 활성 상태가 아니면 시작합니다.
func ensureStarted(ctx context.Context, manager *mcp.Manager, name string) bool {
	for _, active := range manager.ActiveServers() {
		if active == name {
			return true
		}
	}
	return manager.Setup(ctx, name)
}
