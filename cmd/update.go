package cmd

import (
	"fmt"

	"github.com/insajin/anymcp/internal/updater"
	"github.com/spf13/cobra"
)

// githubRepo는 릴리스를 배포하는 GitHub 저장소 경로입니다.
const githubRepo = "insajin/anymcp"

// updateCmd는 최신 릴리스로 바이너리를 교체하는 명령어입니다.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "최신 버전으로 업데이트합니다",
	Long: `GitHub Releases에서 최신 버전을 확인하고 바이너리를 교체합니다.

업데이트 과정:
  1. GitHub에서 최신 릴리스 확인
  2. 현재 버전과 비교
  3. 새 버전이 있으면 다운로드
  4. SHA256 체크섬 검증
  5. 바이너리 교체 (atomic rename)`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	version, _, _ := GetVersionInfo()

	if version == "" || version == "dev" {
		fmt.Println("개발 빌드에서는 자동 업데이트를 사용할 수 없습니다.")
		fmt.Println("릴리스 빌드를 사용하세요: https://github.com/" + githubRepo + "/releases")
		return nil
	}

	fmt.Printf("현재 버전: v%s\n", version)
	fmt.Println("최신 버전 확인 중...")

	u := updater.New(version, githubRepo)

	release, hasUpdate, err := u.CheckForUpdate(cmd.Context())
	if err != nil {
		return fmt.Errorf("업데이트 확인 실패: %w", err)
	}

	if !hasUpdate {
		fmt.Printf("\n이미 최신 버전입니다 (v%s)\n", version)
		return nil
	}

	fmt.Printf("\n새 버전 발견: %s (현재: v%s)\n", release.Version, version)
	fmt.Println("업데이트를 시작합니다...")

	if err := u.DownloadAndReplace(cmd.Context(), release); err != nil {
		return fmt.Errorf("업데이트 실패: %w", err)
	}

	fmt.Printf("\n업데이트 완료: v%s -> %s\n", version, release.Version)
	return nil
}
