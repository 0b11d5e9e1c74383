// Package mcpserver는 매니저 자체를 MCP 서버로 노출합니다.
// 상위 MCP 호스트가 anymcp를 통해 하위 서버들을 관리하고 도구를 호출할 수 있습니다.
package mcpserver

import (
	"context"
	"time"

	anymcp "github.com/insajin/anymcp/internal/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	// ServerName은 MCP 서버 이름입니다.
	ServerName = "anymcp"
	// ServerVersion은 MCP 서버 버전입니다.
	ServerVersion = "0.1.0"
)

// ManagerAPI는 서버 핸들러가 필요로 하는 매니저 동작의 부분집합입니다.
// 테스트에서 가짜 매니저로 교체할 수 있습니다.
type ManagerAPI interface {
	Setup(ctx context.Context, name string) bool
	Stop(name string) bool
	Restart(ctx context.Context, name string) bool
	Call(ctx context.Context, name, tool string, args map[string]any) *mcp.CallToolResult
	ListTools(ctx context.Context, name string) []anymcp.ToolDescriptor
	ListAllTools(ctx context.Context) map[string][]anymcp.ToolDescriptor
	Status(ctx context.Context) map[string]anymcp.ServerStatus
	HealthCheck(ctx context.Context, name string) bool
}

// Server는 anymcp MCP 서버입니다.
// mark3labs/mcp-go를 사용하여 stdio 기반 MCP 프로토콜을 처리합니다.
type Server struct {
	mcpServer *server.MCPServer
	manager   ManagerAPI
	cache     *Cache
	logger    zerolog.Logger
}

// NewServer는 새 MCP 서버를 생성합니다.
func NewServer(manager ManagerAPI, logger zerolog.Logger) *Server {
	s := &Server{
		manager: manager,
		cache:   NewCache(30 * time.Second),
		logger:  logger.With().Str("component", "mcpserver").Logger(),
	}

	// MCP 서버 생성
	s.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	// 도구 및 리소스 등록
	s.registerTools()
	s.registerResources()

	s.logger.Info().
		Str("name", ServerName).
		Str("version", ServerVersion).
		Msg("MCP 서버 초기화 완료")

	return s
}

// Start는 stdio 기반 MCP 서버를 시작합니다.
// 이 함수는 서버가 종료될 때까지 블로킹됩니다.
func (s *Server) Start() error {
	s.logger.Info().Msg("MCP 서버 시작 (stdio 트랜스포트)")
	return server.ServeStdio(s.mcpServer)
}

// registerTools는 모든 MCP 도구를 등록합니다.
func (s *Server) registerTools() {
	// 1. list_servers - 관리 중인 서버 목록
	listServersTool := mcp.NewTool("list_servers",
		mcp.WithDescription("List managed MCP servers with their enabled/active/healthy state."),
	)
	s.mcpServer.AddTool(listServersTool, s.handleListServers)

	// 2. server_status - 단일 서버 상태 조회
	serverStatusTool := mcp.NewTool("server_status",
		mcp.WithDescription("Get the status of a single managed MCP server."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the managed server"),
		),
	)
	s.mcpServer.AddTool(serverStatusTool, s.handleServerStatus)

	// 3. start_server - 서버 시작
	startServerTool := mcp.NewTool("start_server",
		mcp.WithDescription("Start a managed MCP server by name."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the managed server"),
		),
	)
	s.mcpServer.AddTool(startServerTool, s.handleStartServer)

	// 4. stop_server - 서버 중지
	stopServerTool := mcp.NewTool("stop_server",
		mcp.WithDescription("Stop a running managed MCP server."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the managed server"),
		),
	)
	s.mcpServer.AddTool(stopServerTool, s.handleStopServer)

	// 5. restart_server - 서버 재시작
	restartServerTool := mcp.NewTool("restart_server",
		mcp.WithDescription("Restart a managed MCP server (stop then start)."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the managed server"),
		),
	)
	s.mcpServer.AddTool(restartServerTool, s.handleRestartServer)

	// 6. list_tools - 서버의 도구 목록
	listToolsTool := mcp.NewTool("list_tools",
		mcp.WithDescription("List tools of an active managed server, or of all active servers."),
		mcp.WithString("name",
			mcp.Description("Name of the managed server (optional, lists all if omitted)"),
		),
	)
	s.mcpServer.AddTool(listToolsTool, s.handleListTools)

	// 7. call_tool - 도구 호출 프록시
	callToolTool := mcp.NewTool("call_tool",
		mcp.WithDescription("Call a tool on an active managed MCP server."),
		mcp.WithString("server",
			mcp.Required(),
			mcp.Description("Name of the managed server"),
		),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Name of the tool to call"),
		),
		mcp.WithString("arguments",
			mcp.Description("Tool arguments as a JSON object string"),
		),
	)
	s.mcpServer.AddTool(callToolTool, s.handleCallTool)

	s.logger.Debug().Msg("MCP 도구 7개 등록 완료")
}

// registerResources는 모든 MCP 리소스를 등록합니다.
func (s *Server) registerResources() {
	// 1. anymcp://status - 매니저 전체 상태
	statusResource := mcp.NewResource(
		"anymcp://status",
		"Manager Status",
		mcp.WithResourceDescription("Aggregate status of all managed MCP servers"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statusResource, s.handleStatusResource)

	// 2. anymcp://catalog - 활성 서버 도구 카탈로그
	catalogResource := mcp.NewResource(
		"anymcp://catalog",
		"Tool Catalog",
		mcp.WithResourceDescription("Aggregated tool catalog of all active managed servers"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(catalogResource, s.handleCatalogResource)

	s.logger.Debug().Msg("MCP 리소스 2개 등록 완료")
}
