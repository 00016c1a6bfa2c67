package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"
	"github.com/yosida95/uritemplate/v3"

	"github.com/txn2/mcp-vnstock/pkg/handler"
)

const tableTemplateURI = "vnstock://tables/{table}"

// registerResourceTemplates registers the table schema resource template.
func (p *Platform) registerResourceTemplates() {
	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tableTemplateURI,
		Name:        "vnstock table",
		Description: "A vnstock table's family, upstream resource, pushdown columns and discovered columns",
		MIMEType:    "application/json",
	}, p.handleTableResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// handleTableResource serves vnstock://tables/{table}.
func (p *Platform) handleTableResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(tableTemplateURI, uri)
	if err != nil || vars["table"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	info, err := p.handler.Describe(ctx, vars["table"], true)
	if errors.Is(err, handler.ErrTableNotFound) {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", vars["table"], err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding table resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
