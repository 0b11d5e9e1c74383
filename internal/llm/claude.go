package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/insajin/anymcp/internal/config"
	"github.com/rs/zerolog/log"
)

// maxToolRounds는 한 번의 Chat 요청에서 허용하는 최대 도구 호출 라운드입니다.
const maxToolRounds = 10

// ClaudeProvider는 Anthropic Claude API 프로바이더입니다.
// MCP 도구를 Claude의 tool_use 블록으로 노출하고 도구 루프를 수행합니다.
type ClaudeProvider struct {
	client    anthropic.Client
	runner    ToolRunner
	model     string
	maxTokens int64
	history   []anthropic.MessageParam
}

// NewClaudeProvider는 새로운 ClaudeProvider를 생성합니다.
// API 키는 설정에 지정된 환경변수(기본 ANTHROPIC_API_KEY)에서 가져옵니다.
func NewClaudeProvider(cfg config.ProviderConfig, runner ToolRunner) (*ClaudeProvider, error) {
	apiKey := cfg.GetAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s 환경변수를 설정하세요", ErrNoAPIKey, cfg.APIKeyEnv)
	}

	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &ClaudeProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		runner:    runner,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name은 프로바이더 식별자를 반환합니다.
func (p *ClaudeProvider) Name() string {
	return "claude"
}

// Reset은 대화 히스토리를 초기화합니다.
func (p *ClaudeProvider) Reset() {
	p.history = nil
}

// Chat은 사용자 메시지를 보내고 도구 루프를 거쳐 최종 텍스트를 반환합니다.
func (p *ClaudeProvider) Chat(ctx context.Context, message string) (string, error) {
	p.history = append(p.history, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	tools := p.buildTools(ctx)

	for round := 0; round < maxToolRounds; round++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: p.maxTokens,
			Messages:  p.history,
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		response, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("claude API 호출 실패: %w", err)
		}

		p.history = append(p.history, response.ToParam())

		if string(response.StopReason) != "tool_use" {
			return extractText(response), nil
		}

		// 도구 호출 블록을 실행하고 결과를 히스토리에 추가합니다.
		var results []anthropic.ContentBlockParamUnion
		for _, block := range response.Content {
			if block.Type != "tool_use" {
				continue
			}

			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					log.Warn().Err(err).Str("tool", block.Name).Msg("[llm] 도구 입력 파싱 실패")
				}
			}

			output, runErr := p.runner.Run(ctx, block.Name, args)
			isError := runErr != nil
			if isError {
				output = runErr.Error()
				log.Warn().Err(runErr).Str("tool", block.Name).Msg("[llm] 도구 실행 실패")
			} else {
				log.Info().Str("tool", block.Name).Msg("[llm] 도구 실행 성공")
			}

			results = append(results, toolResultBlock(block.ID, output, isError))
		}

		p.history = append(p.history, anthropic.NewUserMessage(results...))
	}

	return "", fmt.Errorf("도구 호출 라운드 한도 초과 (%d회)", maxToolRounds)
}

// buildTools는 ToolRunner의 도구 목록을 Claude 도구 파라미터로 변환합니다.
func (p *ClaudeProvider) buildTools(ctx context.Context) []anthropic.ToolUnionParam {
	var tools []anthropic.ToolUnionParam
	for _, t := range p.runner.Tools(ctx) {
		tool := anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Descriptor.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Descriptor.InputSchema.Properties,
				Required:   t.Descriptor.InputSchema.Required,
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

// toolResultBlock은 도구 실행 결과를 tool_result 블록으로 감쌉니다.
func toolResultBlock(toolUseID, content string, isError bool) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{
			ToolUseID: toolUseID,
			IsError:   anthropic.Bool(isError),
			Content: []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: content}},
			},
		},
	}
}

// extractText는 응답의 텍스트 블록을 이어붙입니다.
func extractText(response *anthropic.Message) string {
	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text
}
