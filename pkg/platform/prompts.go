package platform

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPlatformPrompts registers the prompts declared in server.prompts.
func (p *Platform) registerPlatformPrompts() {
	for _, promptCfg := range p.config.Server.Prompts {
		p.registerPrompt(promptCfg)
	}
}

func (p *Platform) registerPrompt(cfg PromptConfig) {
	text := cfg.Content
	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: cfg.Description,
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: cfg.Description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text}},
			},
		}, nil
	})
}
