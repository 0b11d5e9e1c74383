// status.go는 매니저 상태 확인 명령을 구현합니다.
package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusJSON    bool
	statusMetrics bool
)

// statusCmd는 설치된 모든 서버의 상태를 확인하는 명령어입니다.
var statusCmd = &cobra.Command{
	Use:   "status [names...]",
	Short: "MCP 서버 상태를 확인합니다",
	Long: `설치된 모든 MCP 서버의 상태를 표시합니다.

이름을 지정하면 해당 서버들을 시작한 뒤 상태를 수집하므로
활성/헬스 상태가 실제 연결 결과를 반영합니다. 이름이 없으면
레지스트리 항목의 등록 상태만 표시됩니다.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "JSON 형식으로 출력")
	statusCmd.Flags().BoolVar(&statusMetrics, "metrics", false, "매니저 메트릭 포함")
}

// runStatus는 status 명령의 실행 로직입니다.
func runStatus(cmd *cobra.Command, args []string) error {
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

	// 이름이 지정된 서버는 시작 후 상태를 수집합니다.
	for _, name := range args {
		ensureStarted(ctx, manager, name)
	}

	status := manager.Status(ctx)

	if statusJSON {
		payload := map[string]any{"servers": status}
		if statusMetrics {
			payload["metrics"] = manager.Metrics().GetSnapshot()
			payload["errors"] = manager.ErrorStats(time.Hour)
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON 직렬화 실패: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(status) == 0 {
		fmt.Println(mutedStyle.Render("설치된 MCP 서버가 없습니다."))
		return nil
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(titleStyle.Render("MCP 서버 상태"))
	fmt.Println()

	for _, name := range names {
		st := status[name]
		fmt.Printf("%s (%s)\n", headerStyle.Render(name), st.Kind)
		fmt.Printf("  %s %s\n", labelStyle.Render("enabled:"), onOff(st.Enabled, "yes", "no"))
		fmt.Printf("  %s %s\n", labelStyle.Render("active:"), onOff(st.Active, "yes", "no"))
		fmt.Printf("  %s %s\n", labelStyle.Render("healthy:"), onOff(st.Healthy, "yes", "no"))
		if st.Description != "" {
			fmt.Printf("  %s %s\n", labelStyle.Render("description:"), st.Description)
		}
		fmt.Println()
	}

	if statusMetrics {
		snapshot := manager.Metrics().GetSnapshot()
		fmt.Println(titleStyle.Render("매니저 메트릭"))
		fmt.Println()
		fmt.Printf("  %s %d/%d\n", labelStyle.Render("setup:"),
			snapshot.SetupSuccesses, snapshot.SetupAttempts)
		fmt.Printf("  %s %d (errors: %d)\n", labelStyle.Render("tool calls:"),
			snapshot.ToolCalls, snapshot.ToolCallErrors)
		fmt.Printf("  %s %d\n", labelStyle.Render("restarts:"), snapshot.Restarts)
		fmt.Printf("  %s %s\n", labelStyle.Render("uptime:"), snapshot.Uptime)

		stats := manager.ErrorStats(time.Hour)
		fmt.Printf("  %s %d (최근 1시간)\n", labelStyle.Render("errors:"), stats.TotalErrors)
	}

	return nil
}
