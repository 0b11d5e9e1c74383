// tools.go는 서버 도구 목록 명령을 구현합니다.
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toolsJSON bool

// toolsCmd는 서버의 도구 목록을 출력하는 명령어입니다.
var toolsCmd = &cobra.Command{
	Use:   "tools <name>",
	Short: "MCP 서버의 도구 목록을 출력합니다",
	Long: `지정한 MCP 서버를 시작하고 노출된 도구 목록을 출력합니다.

각 도구의 이름, 설명, 입력 스키마를 표시합니다.`,
	Args: cobra.ExactArgs(1),
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "JSON 형식으로 출력")
}

// runTools는 tools 명령의 실행 로직입니다.
func runTools(cmd *cobra.Command, args []string) error {
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

	tools := manager.ListTools(ctx, name)

	if toolsJSON {
		data, err := json.MarshalIndent(tools, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON 직렬화 실패: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(tools) == 0 {
		fmt.Println(mutedStyle.Render("노출된 도구가 없습니다."))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s 도구 목록", name)))
	fmt.Println()

	for _, tool := range tools {
		fmt.Println(headerStyle.Render(tool.Name))
		if tool.Description != "" {
			fmt.Printf("  %s\n", tool.Description)
		}
		if len(tool.InputSchema.Properties) > 0 {
			schema, err := json.Marshal(tool.InputSchema)
			if err == nil {
				fmt.Printf("  %s %s\n", labelStyle.Render("schema:"), mutedStyle.Render(string(schema)))
			}
		}
		fmt.Println()
	}
	return nil
}
