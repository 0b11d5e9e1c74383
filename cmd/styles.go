// styles.go는 명령 출력에 사용하는 lipgloss 스타일을 정의합니다.
package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/anymcp/internal/branding"
)

var (
	// titleStyle은 섹션 제목을 렌더링합니다.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			Background(lipgloss.Color(branding.ColorDeepViolet)).
			Padding(0, 1)

	// headerStyle은 테이블 헤더를 렌더링합니다.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite))

	// labelStyle은 키-값 표시의 레이블을 렌더링합니다.
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLightGray)).
			Width(14)

	// okStyle은 정상 상태를 틸 색상으로 렌더링합니다.
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(branding.ColorTeal)).
		Bold(true)

	// failStyle은 실패/비정상 상태를 코럴 색상으로 렌더링합니다.
	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorCoral)).
			Bold(true)

	// mutedStyle은 비활성/부가 정보를 흐린 색상으로 렌더링합니다.
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMutedGray))
)

// onOff는 불리언 상태를 컬러 텍스트로 변환합니다.
func onOff(ok bool, okText, failText string) string {
	if ok {
		return okStyle.Render(okText)
	}
	return failStyle.Render(failText)
}
