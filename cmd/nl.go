// nl.go는 자연어 질의를 도구 호출로 라우팅하는 명령을 구현합니다.
package cmd

import (
	"fmt"

	"github.com/insajin/anymcp/internal/llm"
	"github.com/insajin/anymcp/internal/mcp"
	"github.com/spf13/cobra"
)

var nlServers []string

// nlCmd는 자연어 질의를 1회 도구 호출로 변환하는 명령어입니다.
var nlCmd = &cobra.Command{
	Use:   "nl <query>",
	Short: "자연어 질의를 도구 호출로 라우팅합니다",
	Long: `자연어 질의에서 가장 적합한 도구를 퍼지 매칭으로 찾아 호출합니다.

질의에 포함된 key=value 쌍이 도구 인자로 추출됩니다. LLM을 사용하지 않는
휴리스틱 라우팅이며, 대화형 라우팅은 chat 명령을 사용하세요.

예시:
  anymcp nl -s notion "read page page_id=abc123"`,
	Args: cobra.ExactArgs(1),
	RunE: runNL,
}

func init() {
	rootCmd.AddCommand(nlCmd)

	nlCmd.Flags().StringArrayVarP(&nlServers, "server", "s", nil,
		"대상 서버 이름 (반복 가능, 생략 시 활성화된 전체 서버)")
}

// runNL은 nl 명령의 실행 로직입니다.
func runNL(cmd *cobra.Command, args []string) error {
	query := args[0]
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

	// 대상 서버를 시작합니다. 지정이 없으면 활성화된 전체 서버입니다.
	if len(nlServers) > 0 {
		for _, name := range nlServers {
			if !ensureStarted(ctx, manager, name) {
				return fmt.Errorf("서버 시작 실패: %s", name)
			}
		}
	} else {
		if err := manager.Initialize(ctx); err != nil {
			return err
		}
	}

	match := mcp.BestToolMatch(ctx, manager, query)
	if match == nil {
		return fmt.Errorf("질의에서 도구를 추론할 수 없습니다: %q", query)
	}

	fmt.Printf("%s %s/%s (score: %.2f)\n",
		mutedStyle.Render("매칭된 도구:"), match.Server, match.Tool.Name, match.Score)

	toolArgs := mcp.ExtractArgs(query)
	result := manager.Call(ctx, match.Server, match.Tool.Name, toolArgs)
	if result == nil {
		return fmt.Errorf("도구 호출 실패: %s/%s", match.Server, match.Tool.Name)
	}

	fmt.Printf("%s %s\n", okStyle.Render("Success:"), llm.FlattenResult(result))
	return nil
}
