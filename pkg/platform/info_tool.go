package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Info describes this server deployment.
type Info struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	Description       string         `json:"description,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	AgentInstructions string         `json:"agent_instructions,omitempty"`
	Handler           string         `json:"handler"`
	Tables            map[string]int `json:"tables"`
	Tools             []string       `json:"tools"`
	Connected         bool           `json:"connected"`
	Features          Features       `json:"features"`
}

// Features describes enabled features.
type Features struct {
	AuditLogging    bool `json:"audit_logging"`
	PersistentAudit bool `json:"persistent_audit"`
	Metrics         bool `json:"metrics"`
	RateLimited     bool `json:"rate_limited"`
	TermsAccepted   bool `json:"terms_accepted"`
}

type platformInfoInput struct{}

// registerInfoTool registers the platform_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	addTool(p, &mcp.Tool{
		Name:        "platform_info",
		Description: p.buildInfoToolDescription(),
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ platformInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds a tool description from the server config.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this vnstock MCP server"
	if p.config.Server.Name != "" && p.config.Server.Name != "mcp-vnstock" {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	if len(p.config.Server.Tags) > 0 {
		base += fmt.Sprintf(" (%s)", strings.Join(p.config.Server.Tags, ", "))
	}
	return base + ", including the available tables per family, tools and enabled features. " +
		"Call this first to see which Vietnamese market data can be queried."
}

func (p *Platform) info() Info {
	counts := make(map[string]int)
	for _, t := range p.handler.Tables() {
		counts[string(t.Family())]++
	}
	tools := p.Tools()
	sort.Strings(tools)

	return Info{
		Name:              p.config.Server.Name,
		Version:           p.config.Server.Version,
		Description:       p.config.Server.Description,
		Tags:              p.config.Server.Tags,
		AgentInstructions: p.config.Server.AgentInstructions,
		Handler:           p.handler.Name(),
		Tables:            counts,
		Tools:             tools,
		Connected:         p.handler.IsConnected(),
		Features: Features{
			AuditLogging:    p.config.Audit.Enabled,
			PersistentAudit: p.auditStats != nil,
			Metrics:         p.metrics != nil,
			RateLimited:     p.config.VNStock.RateLimit > 0,
			TermsAccepted:   p.config.VNStock.AcceptTerms,
		},
	}
}

// handleInfo handles the platform_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	return toolResult(p.info())
}
