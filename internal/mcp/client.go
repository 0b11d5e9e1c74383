// Package mcp는 MCP 서버 프로세스의 라이프사이클 관리와 도구 호출 라우팅을 제공합니다.
// 와이어 프로토콜은 mark3labs/mcp-go가 처리하며, 이 패키지는 그 위의 얇은 어댑터입니다.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/insajin/anymcp/internal/resilience"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultConnectTimeout은 프로세스 시작 및 MCP 핸드셰이크의 기본 타임아웃입니다.
const DefaultConnectTimeout = 30 * time.Second

// ToolSchema는 도구 입력의 JSON 스키마 투영입니다.
type ToolSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// ToolDescriptor는 MCP 서버가 노출하는 도구의 읽기 전용 투영입니다.
type ToolDescriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InputSchema ToolSchema `json:"input_schema"`
}

// ServerHandle은 하나의 서브프로세스 기반 MCP 서버 연결입니다.
// 내부적으로는 타입화된 오류를 반환하며, 실패 삼킴은 Manager 경계에서만 일어납니다.
type ServerHandle interface {
	// Connect는 서브프로세스를 시작하고 프로토콜 핸드셰이크를 수행합니다.
	// 이미 연결된 핸들에 재호출하는 것은 지원하지 않습니다.
	Connect(ctx context.Context) error
	// ListTools는 서버의 도구 목록을 조회합니다.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	// CallTool은 도구를 이름과 평면 인자 맵으로 호출합니다.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	// ListPrompts는 서버의 프롬프트 목록을 조회합니다.
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)
	// GetPrompt는 프롬프트를 조회합니다.
	GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcp.PromptMessage, error)
	// ReadResource는 URI로 리소스를 읽습니다.
	ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error)
	// Cleanup은 연결과 서브프로세스를 정리합니다. 중복 호출은 no-op입니다.
	Cleanup() error
}

// Handle은 mcp-go stdio 클라이언트 위의 ServerHandle 구현입니다.
type Handle struct {
	name    string
	command string
	args    []string
	env     map[string]string
	logger  zerolog.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// NewHandle은 새로운 핸들을 생성합니다. Connect 전에는 OS 리소스를 소유하지 않습니다.
func NewHandle(name, command string, args []string, env map[string]string) *Handle {
	return &Handle{
		name:    name,
		command: command,
		args:    args,
		env:     env,
		logger:  log.With().Str("server", name).Logger(),
	}
}

// Connect는 서브프로세스를 시작하고 MCP 핸드셰이크를 수행합니다.
// 프로세스 시작 또는 핸드셰이크 실패 시 connection 오류를 반환합니다.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connected {
		return nil
	}

	var envStrings []string
	for k, v := range h.env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(h.command, envStrings, h.args...)
	if err != nil {
		return resilience.NewConnectionError(h.name, "stdio 클라이언트 생성 실패", err)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	_, err = mcpClient.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "anymcp",
				Version: "0.1.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		// 핸드셰이크 실패 시 고아 프로세스가 남지 않도록 정리
		if closeErr := mcpClient.Close(); closeErr != nil {
			h.logger.Debug().Err(closeErr).Msg("[mcp] 실패한 클라이언트 정리 중 오류")
		}
		return resilience.NewConnectionError(h.name, "MCP 핸드셰이크 실패", err)
	}

	h.client = mcpClient
	h.connected = true
	h.logger.Info().Str("command", h.command).Strs("args", h.args).Msg("[mcp] 서버 연결 완료")
	return nil
}

// session은 연결된 클라이언트를 반환합니다. 연결 전이면 connection 오류를 반환합니다.
func (h *Handle) session() (*client.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected || h.client == nil {
		return nil, resilience.NewConnectionError(h.name, "연결되지 않은 핸들, Connect를 먼저 호출하세요", nil)
	}
	return h.client, nil
}

// ListTools는 서버의 도구 목록을 조회합니다.
func (h *Handle) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	c, err := h.session()
	if err != nil {
		return nil, err
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, resilience.Classify(h.name, "", err)
	}

	tools := make([]ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		tools = append(tools, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: ToolSchema{
				Type:       tool.InputSchema.Type,
				Properties: tool.InputSchema.Properties,
				Required:   tool.InputSchema.Required,
			},
		})
	}
	return tools, nil
}

// CallTool은 도구를 호출하고 원본 결과를 반환합니다.
func (h *Handle) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	c, err := h.session()
	if err != nil {
		return nil, err
	}

	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		classified := resilience.Classify(h.name, name, err)
		return nil, classified
	}
	return result, nil
}

// ListPrompts는 서버의 프롬프트 목록을 조회합니다.
func (h *Handle) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	c, err := h.session()
	if err != nil {
		return nil, err
	}

	result, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, resilience.Classify(h.name, "", err)
	}
	return result.Prompts, nil
}

// GetPrompt는 프롬프트를 조회하고 메시지 목록을 반환합니다.
func (h *Handle) GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcp.PromptMessage, error) {
	c, err := h.session()
	if err != nil {
		return nil, err
	}

	result, err := c.GetPrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, resilience.Classify(h.name, "", err)
	}
	return result.Messages, nil
}

// ReadResource는 리소스를 읽고 내용을 반환합니다.
func (h *Handle) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	c, err := h.session()
	if err != nil {
		return nil, err
	}

	result, err := c.ReadResource(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	})
	if err != nil {
		return nil, resilience.Classify(h.name, "", err)
	}
	return result.Contents, nil
}

// Cleanup은 연결과 서브프로세스를 정리합니다.
// 모든 종료 경로에서 안전하며, 중복 호출은 no-op입니다.
func (h *Handle) Cleanup() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected || h.client == nil {
		return nil
	}

	err := h.client.Close()
	h.client = nil
	h.connected = false

	if err != nil {
		h.logger.Warn().Err(err).Msg("[mcp] 클라이언트 정리 중 오류")
		return err
	}
	h.logger.Info().Msg("[mcp] 서버 연결 해제")
	return nil
}
