// serve.go는 매니저를 MCP 서버로 노출하는 명령을 구현합니다.
package cmd

import (
	"fmt"

	"github.com/insajin/anymcp/internal/mcpserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveNoInit bool

// serveCmd는 stdio 기반 MCP 서버를 시작하는 명령어입니다.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "anymcp를 MCP 서버로 실행합니다",
	Long: `anymcp 매니저 자체를 stdio 기반 MCP 서버로 노출합니다.

상위 MCP 호스트(Claude Desktop 등)가 이 서버를 통해 하위 MCP 서버들을
시작/중지하고 도구를 프록시 호출할 수 있습니다.

stdout은 MCP 프로토콜 전용이므로 모든 로그는 stderr로 출력됩니다.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveNoInit, "no-init", false,
		"시작 시 활성화된 서버들을 자동으로 시작하지 않음")
}

// runServe는 serve 명령의 실행 로직입니다.
func runServe(cmd *cobra.Command, args []string) error {
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

	if !serveNoInit {
		if err := manager.Initialize(ctx); err != nil {
			return err
		}
	}

	server := mcpserver.NewServer(manager, log.Logger)

	// ServeStdio는 stdin이 닫힐 때까지 블로킹됩니다.
	if err := server.Start(); err != nil {
		return fmt.Errorf("MCP 서버 실행 실패: %w", err)
	}
	return nil
}
