// list.go는 설치된 MCP 서버 목록 명령을 구현합니다.
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

// listCmd는 설치된 MCP 서버 목록을 출력하는 명령어입니다.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "설치된 MCP 서버 목록을 출력합니다",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "JSON 형식으로 출력")
}

// runList는 list 명령의 실행 로직입니다.
func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	defs := reg.ListAll()

	if listJSON {
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON 직렬화 실패: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(defs) == 0 {
		fmt.Println(mutedStyle.Render("설치된 MCP 서버가 없습니다."))
		fmt.Println()
		fmt.Println("서버를 설치하려면:")
		fmt.Println("  anymcp install <name> docker://<image>")
		fmt.Println("  anymcp install <name> local://<command>")
		return nil
	}

	fmt.Println(titleStyle.Render("설치된 MCP 서버"))
	fmt.Println()
	fmt.Printf("%s\n", headerStyle.Render(fmt.Sprintf("%-20s %-10s %-8s %s", "이름", "종류", "상태", "설명")))

	for _, def := range defs {
		state := onOff(def.Enabled, "enabled", "disabled")
		desc := def.Description
		if desc == "" {
			desc = mutedStyle.Render("-")
		}
		fmt.Printf("%-20s %-10s %-17s %s\n", def.Name, def.Kind, state, desc)
	}
	return nil
}
