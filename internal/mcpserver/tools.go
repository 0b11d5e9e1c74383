package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleListServers는 list_servers 도구 핸들러입니다.
// 레지스트리 전체의 집계 상태를 반환합니다.
func (s *Server) handleListServers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.manager.Status(ctx)

	result, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// handleServerStatus는 server_status 도구 핸들러입니다.
func (s *Server) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	status, ok := s.manager.Status(ctx)[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Server not installed: %s", name)), nil
	}

	result, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// handleStartServer는 start_server 도구 핸들러입니다.
func (s *Server) handleStartServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	s.logger.Info().Str("name", name).Msg("서버 시작 요청")

	if !s.manager.Setup(ctx, name) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start server: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server started: %s", name)), nil
}

// handleStopServer는 stop_server 도구 핸들러입니다.
func (s *Server) handleStopServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	s.logger.Info().Str("name", name).Msg("서버 중지 요청")

	if !s.manager.Stop(name) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to stop server: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server stopped: %s", name)), nil
}

// handleRestartServer는 restart_server 도구 핸들러입니다.
func (s *Server) handleRestartServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	s.logger.Info().Str("name", name).Msg("서버 재시작 요청")

	if !s.manager.Restart(ctx, name) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to restart server: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server restarted: %s", name)), nil
}

// handleListTools는 list_tools 도구 핸들러입니다.
// name이 주어지면 해당 서버, 없으면 모든 활성 서버의 도구를 반환합니다.
func (s *Server) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")

	var payload any
	if name != "" {
		payload = s.manager.ListTools(ctx, name)
	} else {
		payload = s.manager.ListAllTools(ctx)
	}

	result, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// handleCallTool은 call_tool 도구 핸들러입니다.
// 활성 서버의 도구로 호출을 프록시합니다.
func (s *Server) handleCallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serverName, err := request.RequireString("server")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'server' is missing or invalid"), nil
	}

	toolName, err := request.RequireString("tool")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'tool' is missing or invalid"), nil
	}

	args := map[string]any{}
	if raw := request.GetString("arguments", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments JSON: %s", err.Error())), nil
		}
	}

	s.logger.Info().
		Str("server", serverName).
		Str("tool", toolName).
		Msg("도구 호출 프록시 요청")

	result := s.manager.Call(ctx, serverName, toolName, args)
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Tool call failed: %s/%s (server inactive or call error)", serverName, toolName)), nil
	}
	return result, nil
}
