// Package server provides a factory for creating the MCP server and its
// HTTP surface.
package server

import (
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-vnstock/pkg/metrics"
	"github.com/txn2/mcp-vnstock/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// Health endpoints served next to the MCP endpoint.
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
)

// New creates the platform for cfg and returns its MCP server.
func New(cfg *platform.Config, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	if cfg != nil && cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}

	opts = append([]platform.Option{platform.WithConfig(cfg)}, opts...)
	p, err := platform.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}
	return p.MCPServer(), p, nil
}

// NewHTTPHandler serves the platform's MCP server over streamable HTTP,
// together with health probes and, when enabled, Prometheus metrics.
func NewHTTPHandler(p *platform.Platform) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(LivenessPath, p.Health().LivenessHandler())
	mux.Handle(ReadinessPath, p.Health().ReadinessHandler())

	if cfg := p.Config().Metrics; cfg.Enabled {
		mux.Handle(cfg.Path, metrics.Handler(p.Registry()))
	}

	mcpServer := p.MCPServer()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil))
	return mux
}
