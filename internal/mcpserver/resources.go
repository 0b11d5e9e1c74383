package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// 리소스 캐시 키 상수
const (
	cacheKeyStatus  = "resource:status"
	cacheKeyCatalog = "resource:catalog"
)

// CachedResponse는 캐시된 응답을 래핑하는 구조체입니다.
// 원본 데이터에 캐시 메타데이터를 추가하여 반환합니다.
type CachedResponse struct {
	Data     any    `json:"data"`
	Cached   bool   `json:"cached"`
	CachedAt string `json:"cached_at"`
}

// newTextResource는 텍스트 리소스 콘텐츠를 생성하는 헬퍼입니다.
func newTextResource(uri, text, mimeType string) mcp.TextResourceContents {
	return mcp.TextResourceContents{
		URI:      uri,
		MIMEType: mimeType,
		Text:     text,
	}
}

// handleStatusResource는 anymcp://status 리소스 핸들러입니다.
// 레지스트리 전체의 집계 상태를 반환하며, TTL 내에서는 캐시를 사용합니다.
// 상태 수집에는 활성 서버별 헬스 체크가 포함되어 비용이 있기 때문입니다.
func (s *Server) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if cached, storedAt, ok := s.cache.Get(cacheKeyStatus); ok {
		data, err := json.MarshalIndent(CachedResponse{
			Data:     cached,
			Cached:   true,
			CachedAt: storedAt.Format(time.RFC3339),
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("상태 직렬화 실패: %w", err)
		}
		return []mcp.ResourceContents{
			newTextResource(request.Params.URI, string(data), "application/json"),
		}, nil
	}

	status := s.manager.Status(ctx)
	s.cache.Set(cacheKeyStatus, status)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("상태 직렬화 실패: %w", err)
	}
	return []mcp.ResourceContents{
		newTextResource(request.Params.URI, string(data), "application/json"),
	}, nil
}

// handleCatalogResource는 anymcp://catalog 리소스 핸들러입니다.
// 모든 활성 서버의 도구 카탈로그를 반환합니다.
// 활성 서버가 하나도 없으면 만료된 캐시라도 폴백으로 반환합니다.
func (s *Server) handleCatalogResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	catalog := s.manager.ListAllTools(ctx)

	if len(catalog) == 0 {
		if cached, storedAt, ok := s.cache.GetStale(cacheKeyCatalog); ok {
			s.logger.Info().Msg("활성 서버 없음, 캐시된 카탈로그를 폴백으로 반환")
			data, err := json.MarshalIndent(CachedResponse{
				Data:     cached,
				Cached:   true,
				CachedAt: storedAt.Format(time.RFC3339),
			}, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("카탈로그 직렬화 실패: %w", err)
			}
			return []mcp.ResourceContents{
				newTextResource(request.Params.URI, string(data), "application/json"),
			}, nil
		}
	} else {
		s.cache.Set(cacheKeyCatalog, catalog)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("카탈로그 직렬화 실패: %w", err)
	}
	return []mcp.ResourceContents{
		newTextResource(request.Params.URI, string(data), "application/json"),
	}, nil
}
