// runtime.go는 명령 핸들러들이 공유하는 레지스트리/매니저 구성 헬퍼를 제공합니다.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/insajin/anymcp/internal/bus"
	"github.com/insajin/anymcp/internal/config"
	"github.com/insajin/anymcp/internal/mcp"
	"github.com/insajin/anymcp/internal/registry"
	"github.com/insajin/anymcp/internal/resilience"
	"github.com/rs/zerolog/log"
)

// newRegistry는 설정에 따라 레지스트리를 엽니다.
func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg, err := registry.New(cfg.Registry.Path, cfg.Registry.MCPDir)
	if err != nil {
		return nil, fmt.Errorf("레지스트리 열기 실패: %w", err)
	}
	return reg, nil
}

// newManager는 레지스트리, 이벤트 싱크, 메트릭이 연결된 매니저를 생성합니다.
// 반환된 cleanup은 매니저와 이벤트 버스 연결을 정리합니다.
func newManager(ctx context.Context, cfg *config.Config) (*mcp.Manager, func(), error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	var sink bus.Sink = bus.NopSink{}
	var publisher *bus.Publisher
	if cfg.Bus.URL != "" {
		publisher, err = bus.Dial(ctx, cfg.Bus.URL)
		if err != nil {
			// 이벤트 버스는 보조 기능이므로 연결 실패가 명령 실행을 막지 않습니다.
			log.Warn().Err(err).Str("url", cfg.Bus.URL).Msg("이벤트 버스 연결 실패, 이벤트 발행 비활성화")
		} else {
			sink = publisher
		}
	}

	retryPolicy := resilience.DefaultRetryPolicy()
	if cfg.Resilience.MaxAttempts > 0 {
		retryPolicy.MaxAttempts = cfg.Resilience.MaxAttempts
	}
	if cfg.Resilience.InitialDelayMs > 0 {
		retryPolicy.InitialDelay = time.Duration(cfg.Resilience.InitialDelayMs) * time.Millisecond
	}
	if cfg.Resilience.BackoffMultiplier > 0 {
		retryPolicy.BackoffMultiplier = cfg.Resilience.BackoffMultiplier
	}

	manager := mcp.NewManager(reg,
		mcp.WithEventSink(sink),
		mcp.WithTimeouts(cfg.MCP.ConnectTimeout(), cfg.MCP.CallTimeout()),
		mcp.WithRetryPolicy(retryPolicy),
		mcp.WithBreakerSettings(cfg.Resilience.FailureThreshold,
			time.Duration(cfg.Resilience.RecoveryTimeoutSec)*time.Second),
	)

	cleanup := func() {
		manager.Cleanup()
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				log.Debug().Err(err).Msg("이벤트 버스 종료 실패")
			}
		}
	}
	return manager, cleanup, nil
}

// cfgConnectContext는 설정된 연결 타임아웃이 적용된 컨텍스트를 반환합니다.
func cfgConnectContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.MCP.ConnectTimeout())
}
