package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/insajin/anymcp/internal/resilience"
)

// TestHandle_UnconnectedErrors는 Connect 전 호출이 connection 오류를 반환하는지 테스트합니다.
func TestHandle_UnconnectedErrors(t *testing.T) {
	h := NewHandle("calc", "echo", nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"ListTools", func() error { _, err := h.ListTools(ctx); return err }},
		{"CallTool", func() error { _, err := h.CallTool(ctx, "add", nil); return err }},
		{"ListPrompts", func() error { _, err := h.ListPrompts(ctx); return err }},
		{"GetPrompt", func() error { _, err := h.GetPrompt(ctx, "greet", nil); return err }},
		{"ReadResource", func() error { _, err := h.ReadResource(ctx, "file://x"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("연결되지 않은 핸들의 호출은 오류를 반환해야 합니다")
			}

			var rerr *resilience.Error
			if !errors.As(err, &rerr) {
				t.Fatalf("타입화된 오류여야 합니다: %v", err)
			}
			if rerr.Kind != resilience.KindConnection {
				t.Errorf("Kind = %v, want KindConnection", rerr.Kind)
			}
			if rerr.Server != "calc" {
				t.Errorf("Server = %q, want calc", rerr.Server)
			}
		})
	}
}

// TestHandle_CleanupIdempotent는 연결 전/중복 Cleanup이 no-op인지 테스트합니다.
func TestHandle_CleanupIdempotent(t *testing.T) {
	h := NewHandle("calc", "echo", nil, nil)

	if err := h.Cleanup(); err != nil {
		t.Errorf("연결 전 Cleanup() error = %v, want nil", err)
	}
	if err := h.Cleanup(); err != nil {
		t.Errorf("중복 Cleanup() error = %v, want nil", err)
	}
}
