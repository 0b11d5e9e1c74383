// chat.go는 LLM 기반 대화형 도구 호출 명령을 구현합니다.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/insajin/anymcp/internal/llm"
	"github.com/spf13/cobra"
)

var (
	chatProvider string
	chatServers  []string
)

// chatCmd는 LLM과의 대화형 세션을 시작하는 명령어입니다.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "LLM 대화형 세션을 시작합니다",
	Long: `LLM과의 대화형 세션을 시작합니다.

활성 MCP 서버의 도구가 LLM에 노출되어 대화 중 자동으로 호출됩니다.
claude 프로바이더는 도구 호출을 지원하며, gemini 프로바이더는
도구 카탈로그를 문맥으로만 제공합니다.

세션 명령:
  /reset    대화 히스토리 초기화
  /quit     세션 종료`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatProvider, "provider", "p", "",
		"LLM 프로바이더 (claude, gemini; 기본값은 설정을 따름)")
	chatCmd.Flags().StringArrayVarP(&chatServers, "server", "s", nil,
		"세션에서 사용할 서버 이름 (반복 가능, 생략 시 활성화된 전체 서버)")
}

// runChat은 chat 명령의 실행 로직입니다.
func runChat(cmd *cobra.Command, args []string) error {
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

	if len(chatServers) > 0 {
		for _, name := range chatServers {
			if !ensureStarted(ctx, manager, name) {
				return fmt.Errorf("서버 시작 실패: %s", name)
			}
		}
	} else {
		if err := manager.Initialize(ctx); err != nil {
			return err
		}
	}

	runner := llm.NewManagerRunner(manager)
	provider, err := llm.New(ctx, cfg.Providers, runner, chatProvider)
	if err != nil {
		return err
	}

	toolCount := len(runner.Tools(ctx))
	fmt.Println(titleStyle.Render(fmt.Sprintf("anymcp chat (%s)", provider.Name())))
	fmt.Printf("%s\n\n", mutedStyle.Render(
		fmt.Sprintf("노출된 도구 %d개 · /reset 히스토리 초기화 · /quit 종료", toolCount)))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(headerStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			provider.Reset()
			fmt.Println(mutedStyle.Render("대화 히스토리를 초기화했습니다."))
			continue
		}

		reply, err := provider.Chat(ctx, line)
		if err != nil {
			fmt.Printf("%s %v\n", failStyle.Render("오류:"), err)
			continue
		}
		fmt.Printf("%s %s\n\n", okStyle.Render(provider.Name()+">"), reply)
	}
	return scanner.Err()
}
