package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/insajin/anymcp/internal/config"
	"google.golang.org/api/option"
)

// GeminiProvider는 Google Gemini API 프로바이더입니다.
// Gemini 경로는 도구 호출을 수행하지 않으며, 도구 카탈로그를
// 시스템 지시문으로만 주입합니다.
type GeminiProvider struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	session *genai.ChatSession
}

// NewGeminiProvider는 새로운 GeminiProvider를 생성합니다.
// API 키는 설정에 지정된 환경변수(기본 GEMINI_API_KEY)에서 가져옵니다.
func NewGeminiProvider(ctx context.Context, cfg config.ProviderConfig, runner ToolRunner) (*GeminiProvider, error) {
	apiKey := cfg.GetAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s 환경변수를 설정하세요", ErrNoAPIKey, cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini 클라이언트 생성 실패: %w", err)
	}

	modelName := cfg.DefaultModel
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	model := client.GenerativeModel(modelName)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	if instruction := describeTools(ctx, runner); instruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(instruction)},
		}
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		session: model.StartChat(),
	}, nil
}

// Name은 프로바이더 식별자를 반환합니다.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Reset은 대화 세션을 새로 시작합니다.
func (p *GeminiProvider) Reset() {
	p.session = p.model.StartChat()
}

// Chat은 사용자 메시지를 보내고 텍스트 응답을 반환합니다.
func (p *GeminiProvider) Chat(ctx context.Context, message string) (string, error) {
	response, err := p.session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini API 호출 실패: %w", err)
	}
	return extractGeminiText(response), nil
}

// Close는 Gemini 클라이언트를 닫습니다.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// describeTools는 사용 가능한 도구 카탈로그를 지시문 텍스트로 요약합니다.
func describeTools(ctx context.Context, runner ToolRunner) string {
	tools := runner.Tools(ctx)
	if len(tools) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("다음 MCP 도구들이 설치되어 있습니다 (직접 호출은 불가능하며 참고용입니다):\n")
	for _, t := range tools {
		desc := t.Descriptor.Description
		if desc == "" {
			desc = "(설명 없음)"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), desc)
	}
	return sb.String()
}

// extractGeminiText는 Gemini 응답에서 텍스트를 추출합니다.
func extractGeminiText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}

	var parts []string
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}
	return strings.Join(parts, "")
}
