package llm

import (
	"context"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/insajin/anymcp/internal/config"
	"github.com/insajin/anymcp/internal/mcp"
)

// stubRunner는 고정 도구 목록을 반환하는 ToolRunner입니다.
type stubRunner struct {
	tools []NamespacedTool
}

func (s *stubRunner) Tools(ctx context.Context) []NamespacedTool { return s.tools }

func (s *stubRunner) Run(ctx context.Context, name string, args map[string]any) (string, error) {
	return "stub", nil
}

// TestClaudeProvider_BuildTools는 MCP 도구의 Claude 파라미터 변환을 테스트합니다.
func TestClaudeProvider_BuildTools(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-ant-test-key")

	runner := &stubRunner{tools: []NamespacedTool{
		{
			Server: "calc",
			Descriptor: mcp.ToolDescriptor{
				Name:        "add",
				Description: "두 수를 더합니다",
				InputSchema: mcp.ToolSchema{
					Type: "object",
					Properties: map[string]any{
						"a": map[string]any{"type": "number"},
						"b": map[string]any{"type": "number"},
					},
					Required: []string{"a", "b"},
				},
			},
		},
	}}

	provider, err := NewClaudeProvider(config.ProviderConfig{APIKeyEnv: "TEST_CLAUDE_KEY"}, runner)
	if err != nil {
		t.Fatalf("NewClaudeProvider() error = %v", err)
	}

	tools := provider.buildTools(context.Background())
	if len(tools) != 1 {
		t.Fatalf("도구 수 = %d, want 1", len(tools))
	}

	tool := tools[0].OfTool
	if tool == nil {
		t.Fatal("OfTool이 설정되어야 합니다")
	}
	if tool.Name != "calc__add" {
		t.Errorf("Name = %q, want calc__add", tool.Name)
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("Required = %v", tool.InputSchema.Required)
	}
}

// TestClaudeProvider_Defaults는 모델/토큰 기본값 보정을 테스트합니다.
func TestClaudeProvider_Defaults(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-ant-test-key")

	provider, err := NewClaudeProvider(config.ProviderConfig{APIKeyEnv: "TEST_CLAUDE_KEY"}, &stubRunner{})
	if err != nil {
		t.Fatalf("NewClaudeProvider() error = %v", err)
	}
	if provider.model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", provider.model)
	}
	if provider.maxTokens != 4096 {
		t.Errorf("maxTokens = %d, want 4096", provider.maxTokens)
	}
}

// TestToolResultBlock은 tool_result 블록 구성을 테스트합니다.
func TestToolResultBlock(t *testing.T) {
	block := toolResultBlock("tu-001", "output text", true)

	if block.OfToolResult == nil {
		t.Fatal("OfToolResult가 설정되어야 합니다")
	}
	if block.OfToolResult.ToolUseID != "tu-001" {
		t.Errorf("ToolUseID = %q", block.OfToolResult.ToolUseID)
	}
	if !block.OfToolResult.IsError.Value {
		t.Error("IsError가 true여야 합니다")
	}
	if len(block.OfToolResult.Content) != 1 {
		t.Fatalf("Content 수 = %d, want 1", len(block.OfToolResult.Content))
	}
	if block.OfToolResult.Content[0].OfText.Text != "output text" {
		t.Errorf("텍스트 = %q", block.OfToolResult.Content[0].OfText.Text)
	}
}

// TestExtractText는 응답 텍스트 블록 추출을 테스트합니다.
func TestExtractText(t *testing.T) {
	response := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "첫 번째 "},
			{Type: "tool_use", Name: "calc__add"},
			{Type: "text", Text: "두 번째"},
		},
	}
	if got := extractText(response); got != "첫 번째 두 번째" {
		t.Errorf("extractText() = %q", got)
	}
}

// TestClaudeProvider_Reset은 히스토리 초기화를 테스트합니다.
func TestClaudeProvider_Reset(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-ant-test-key")

	provider, err := NewClaudeProvider(config.ProviderConfig{APIKeyEnv: "TEST_CLAUDE_KEY"}, &stubRunner{})
	if err != nil {
		t.Fatalf("NewClaudeProvider() error = %v", err)
	}

	provider.history = append(provider.history, anthropic.NewUserMessage(anthropic.NewTextBlock("hello")))
	provider.Reset()
	if len(provider.history) != 0 {
		t.Errorf("Reset 후 히스토리 길이 = %d, want 0", len(provider.history))
	}
}
