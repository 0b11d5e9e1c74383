// Package llm은 MCP 도구를 사용하는 AI 프로바이더 통합 레이어를 제공합니다.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/insajin/anymcp/internal/config"
	"github.com/insajin/anymcp/internal/mcp"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// 공통 에러 정의
var (
	ErrNoAPIKey        = errors.New("API 키가 설정되지 않음")
	ErrUnknownProvider = errors.New("알 수 없는 프로바이더")
)

// Provider는 대화형 LLM 프로바이더 인터페이스입니다.
// 구현체는 대화 히스토리를 내부에 유지합니다.
type Provider interface {
	// Name은 프로바이더 식별자를 반환합니다.
	Name() string

	// Chat은 사용자 메시지를 보내고 최종 텍스트 응답을 반환합니다.
	// 도구 호출이 필요한 경우 내부에서 도구 루프를 수행합니다.
	Chat(ctx context.Context, message string) (string, error)

	// Reset은 대화 히스토리를 초기화합니다.
	Reset()
}

// NamespacedTool은 서버 이름이 접두사로 붙은 도구입니다.
// 서로 다른 서버의 동명 도구를 구분하기 위해 "서버__도구" 형태를 사용합니다.
type NamespacedTool struct {
	Server     string
	Descriptor mcp.ToolDescriptor
}

// Name은 네임스페이스가 적용된 도구 이름을 반환합니다.
func (t NamespacedTool) Name() string {
	return t.Server + "__" + t.Descriptor.Name
}

// ToolRunner는 프로바이더가 도구 목록 조회와 호출에 사용하는 인터페이스입니다.
type ToolRunner interface {
	// Tools는 모든 활성 서버의 네임스페이스 도구 목록을 반환합니다.
	Tools(ctx context.Context) []NamespacedTool

	// Run은 네임스페이스 도구 이름으로 도구를 호출하고 텍스트 결과를 반환합니다.
	Run(ctx context.Context, namespacedName string, args map[string]any) (string, error)
}

// ManagerRunner는 MCP 매니저를 ToolRunner로 노출하는 어댑터입니다.
type ManagerRunner struct {
	manager *mcp.Manager
}

// NewManagerRunner는 매니저 기반 ToolRunner를 생성합니다.
func NewManagerRunner(manager *mcp.Manager) *ManagerRunner {
	return &ManagerRunner{manager: manager}
}

// Tools는 활성 서버 전체의 도구를 네임스페이스 형태로 수집합니다.
func (r *ManagerRunner) Tools(ctx context.Context) []NamespacedTool {
	var tools []NamespacedTool
	for server, descs := range r.manager.ListAllTools(ctx) {
		for _, desc := range descs {
			tools = append(tools, NamespacedTool{Server: server, Descriptor: desc})
		}
	}
	return tools
}

// Run은 "서버__도구" 이름을 분해하여 매니저로 라우팅합니다.
func (r *ManagerRunner) Run(ctx context.Context, namespacedName string, args map[string]any) (string, error) {
	server, tool, ok := strings.Cut(namespacedName, "__")
	if !ok {
		return "", fmt.Errorf("잘못된 도구 이름 형식: %s", namespacedName)
	}

	result := r.manager.Call(ctx, server, tool, args)
	if result == nil {
		return "", fmt.Errorf("도구 호출 실패: %s/%s", server, tool)
	}
	return FlattenResult(result), nil
}

// FlattenResult는 MCP 도구 결과의 텍스트 콘텐츠를 하나의 문자열로 합칩니다.
func FlattenResult(result *mcpgo.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(mcpgo.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// New는 설정에 따라 프로바이더를 생성합니다.
// name이 비어 있으면 설정의 기본 프로바이더를 사용합니다.
func New(ctx context.Context, cfg config.ProvidersConfig, runner ToolRunner, name string) (Provider, error) {
	if name == "" {
		name = cfg.Default
	}

	switch name {
	case "claude":
		return NewClaudeProvider(cfg.Claude, runner)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini, runner)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
