// Package branding은 anymcp CLI의 애플리케이션 정체성과 색상 상수를 중앙화합니다.
package branding

// 애플리케이션 정체성 상수
const (
	AppName    = "anymcp"
	CLIName    = "anymcp MCP Manager"
	BinaryName = "anymcp"
)

// lipgloss true color 지원을 위한 16진수 색상 상수
const (
	// ColorPrimary는 주 색상입니다.
	ColorPrimary = "#8B5CF6"
	// ColorDeepViolet은 제목 배경에 사용하는 짙은 보라색입니다.
	ColorDeepViolet = "#4C1D95"
	// ColorTeal은 정상/성공 상태 색상입니다.
	ColorTeal = "#14B8A6"
	// ColorCoral은 오류/실패 상태 색상입니다.
	ColorCoral = "#E11D48"
	// ColorWhite는 순백색입니다.
	ColorWhite = "#FFFFFF"
	// ColorLightGray는 레이블에 사용하는 밝은 회색입니다.
	ColorLightGray = "#A1A1AA"
	// ColorMutedGray는 부가 정보에 사용하는 흐린 회색입니다.
	ColorMutedGray = "#71717A"
)
