package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/isdmx/podrun/config"
	"github.com/isdmx/podrun/sandbox"
)

// Tool names
const (
	ToolRunCode      = "run_code"
	ToolListRuntimes = "list_runtimes"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config     *config.Config
	logger     *zap.Logger
	executor   sandbox.Executor
	mcpServer  *server.MCPServer
	httpServer *http.Server
}

// RunResult is the JSON body returned by the run_code tool
type RunResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Produced bool   `json:"produced"`
	ExitCode int    `json:"exit_code"`
}

// RuntimeInfo is one entry of the list_runtimes response
type RuntimeInfo struct {
	Runtime string `json:"runtime"`
	Image   string `json:"image"`
}

// New creates a new MCPServer. gatherer backs the /metrics endpoint in HTTP mode.
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.Executor, gatherer prometheus.Gatherer) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		executor: executor,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("engine.cmd", cfg.Engine.Cmd),
		zap.Float64("engine.cpus", cfg.Engine.CPUs),
		zap.String("engine.memory", cfg.Engine.Memory),
		zap.String("engine.memory_swap", cfg.Engine.MemorySwap),
		zap.Duration("engine.timeout", cfg.GetTimeout()),
		zap.String("engine.extra_flags", cfg.Engine.ExtraFlags),
		zap.Int("runtimes.overrides", len(cfg.Runtimes)),
	)

	s.mcpServer = server.NewMCPServer("podrun", "1.0.0", server.WithToolCapabilities(false))

	s.registerRunCodeTool()
	s.registerListRuntimesTool()

	if cfg.Server.Transport == "http" {
		mux := http.NewServeMux()
		mux.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer))
		if gatherer != nil {
			mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		}
		s.httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return s, nil
}

func runtimeNames() []string {
	ids := sandbox.RuntimeIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	return names
}

// registerRunCodeTool registers the run_code tool
func (s *MCPServer) registerRunCodeTool() {
	tool := mcp.Tool{
		Name:        ToolRunCode,
		Description: "Run untrusted code in a network-less, read-only podman container and return its output",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"runtime": map[string]any{
					"type":        "string",
					"description": "Runtime used to execute the code",
					"enum":        runtimeNames(),
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"cpus": map[string]any{
					"type":        "number",
					"description": "CPU quota (default 1)",
				},
				"memory": map[string]any{
					"type":        []string{"string", "number"},
					"description": "Memory limit accepted by the engine (default 128m)",
				},
				"memory_swap": map[string]any{
					"type":        []string{"string", "number"},
					"description": "Memory plus swap limit accepted by the engine (default 512m)",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds, never below 60",
				},
			},
			Required: []string{"runtime", "code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunCode)
}

// registerListRuntimesTool registers the list_runtimes tool
func (s *MCPServer) registerListRuntimesTool() {
	tool := mcp.Tool{
		Name:        ToolListRuntimes,
		Description: "List the runtimes accepted by run_code and the image each one uses",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListRuntimes)
}

// handleRunCode handles the run_code tool
func (s *MCPServer) handleRunCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	runtime, err := request.RequireString("runtime")
	if err != nil {
		return nil, fmt.Errorf("runtime parameter is required: %w", err)
	}

	if !sandbox.IsKnownRuntime(runtime) {
		return errorResult(fmt.Sprintf("Unknown runtime %q, must be one of: %v", runtime, runtimeNames())), nil
	}

	cfg := sandbox.Defaults(s.config)
	cfg.Runtime = sandbox.RuntimeID(runtime)
	cfg.Code = code
	cfg.CPUs = request.GetFloat("cpus", cfg.CPUs)
	cfg.TimeoutSec = request.GetInt("timeout", cfg.TimeoutSec)

	args := request.GetArguments()
	if cfg.Memory, err = sizeArgument(args, "memory", cfg.Memory); err != nil {
		return errorResult(err.Error()), nil
	}
	if cfg.MemorySwap, err = sizeArgument(args, "memory_swap", cfg.MemorySwap); err != nil {
		return errorResult(err.Error()), nil
	}

	s.logger.Info("executing code in container",
		zap.String("runtime", runtime),
		zap.Int("code_len", len(code)))

	var stdout, stderr string
	outcome, err := s.executor.Execute(ctx, cfg,
		func(text string) { stdout = text },
		func(text string) { stderr = text },
	)
	if err != nil {
		s.logger.Error("execution rejected", zap.Error(err), zap.String("runtime", runtime))
		return errorResult(fmt.Sprintf("Execution failed: %v", err)), nil
	}

	body, err := json.Marshal(RunResult{
		Stdout:   stdout,
		Stderr:   stderr,
		Produced: outcome.Produced,
		ExitCode: outcome.ExitCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return textResult(string(body)), nil
}

// handleListRuntimes handles the list_runtimes tool
func (s *MCPServer) handleListRuntimes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := make([]RuntimeInfo, 0, len(sandbox.RuntimeIDs()))
	for _, id := range sandbox.RuntimeIDs() {
		image, err := sandbox.DefaultImage(id)
		if err != nil {
			return nil, err
		}
		if override := s.config.Runtimes[string(id)].Image; override != "" {
			image = override
		}
		infos = append(infos, RuntimeInfo{Runtime: string(id), Image: image})
	}

	body, err := json.Marshal(infos)
	if err != nil {
		return nil, fmt.Errorf("failed to encode runtimes: %w", err)
	}

	return textResult(string(body)), nil
}

// sizeArgument reads a memory size that may arrive as a string or a number
func sizeArgument(args map[string]any, key, fallback string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return fallback, nil
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("%s must be a string or a number, got %T", key, raw)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP, serving MCP at /mcp and metrics at /metrics
func (s *MCPServer) ServeHTTP() error {
	if s.httpServer == nil {
		return errors.New("http transport is not configured")
	}

	s.logger.Info("starting MCP server on HTTP", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener if one is running
func (s *MCPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
