package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"

	"github.com/txn2/mcp-vnstock/pkg/audit"
	"github.com/txn2/mcp-vnstock/pkg/handler"
	"github.com/txn2/mcp-vnstock/pkg/tables"
)

// Tool names.
const (
	toolQuery        = "vnstock_query"
	toolExplain      = "vnstock_explain"
	toolListTables   = "vnstock_list_tables"
	toolDescribe     = "vnstock_describe_table"
	toolQueryHistory = "vnstock_query_history"
	toolQueryStats   = "vnstock_query_stats"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type sqlInput struct {
	SQL string `json:"sql" jsonschema:"a single SELECT statement against one vnstock table"`
}

type listTablesInput struct {
	Family string `json:"family,omitempty" jsonschema:"only list tables of this family: stock, quote, fund, fund_list, gold or exchange_rate"`
}

type describeTableInput struct {
	Table   string `json:"table" jsonschema:"the table name"`
	Columns bool   `json:"columns,omitempty" jsonschema:"discover the table's columns, which may call the upstream service"`
}

type queryHistoryInput struct {
	Table      string `json:"table,omitempty" jsonschema:"only return queries against this table"`
	FailedOnly bool   `json:"failed_only,omitempty" jsonschema:"only return failed queries"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of queries to return"`
}

// queryHistory is the vnstock_query_history result. Total counts every
// matching event and is omitted when the audit backend cannot count.
type queryHistory struct {
	Events []audit.Event `json:"events"`
	Total  *int          `json:"total,omitempty"`
}

type queryStatsInput struct {
	GroupBy string `json:"group_by,omitempty" jsonschema:"table_name or transport"`
	Hours   int    `json:"hours,omitempty" jsonschema:"lookback window in hours, default 24"`
}

// registerQueryTools registers the vnstock tools with the MCP server.
func (p *Platform) registerQueryTools() {
	addTool(p, &mcp.Tool{
		Name: toolQuery,
		Description: "Run a SELECT statement against one vnstock table. Equality predicates on a " +
			"table's pushdown columns are sent upstream; every other filter, ORDER BY and LIMIT " +
			"is applied to the fetched rows. Joins, aggregation and writes are not supported.",
	}, p.handleQuery)

	addTool(p, &mcp.Tool{
		Name:        toolExplain,
		Description: "Show how a SELECT statement would be split into an upstream request and local filters, without fetching.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in sqlInput) (*mcp.CallToolResult, any, error) {
		plan, err := p.handler.Explain(ctx, in.SQL)
		if err != nil {
			return toolError(err)
		}
		return toolResult(plan)
	})

	addTool(p, &mcp.Tool{
		Name:        toolListTables,
		Description: "List the vnstock tables with their family, upstream resource and pushdown columns.",
	}, p.handleListTables)

	addTool(p, &mcp.Tool{
		Name:        toolDescribe,
		Description: "Describe one vnstock table, optionally discovering its columns.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in describeTableInput) (*mcp.CallToolResult, any, error) {
		info, err := p.handler.Describe(ctx, in.Table, in.Columns)
		if err != nil {
			return toolError(err)
		}
		return toolResult(info)
	})

	if !p.config.Audit.Enabled {
		return
	}

	addTool(p, &mcp.Tool{
		Name:        toolQueryHistory,
		Description: "List recently audited vnstock queries, newest first.",
	}, p.handleQueryHistory)

	if p.auditStats != nil {
		addTool(p, &mcp.Tool{
			Name:        toolQueryStats,
			Description: "Summarise audited vnstock queries by table or transport: count, success rate, average duration and rows.",
		}, p.handleQueryStats)
	}
}

// handleQuery runs a statement and records it in the audit log.
func (p *Platform) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in sqlInput) (*mcp.CallToolResult, any, error) {
	event := audit.NewEvent(in.SQL).WithTransport(p.config.Server.Transport)

	start := time.Now()
	resp, err := p.handler.NativeQuery(ctx, in.SQL)
	elapsed := time.Since(start)

	var (
		rows int
		plan *tables.Plan
	)
	if resp != nil {
		rows = resp.Count
		plan = resp.Plan
		event.WithTable(resp.Table)
	} else if explained, perr := p.handler.Explain(ctx, in.SQL); perr == nil {
		plan = explained
		event.WithTable(explained.Table)
	}
	if plan != nil {
		event.WithPlan(pushdownOf(plan), residualOf(plan))
	}
	event.WithResult(rows, err, elapsed)

	if logErr := p.auditLogger.Log(ctx, *event); logErr != nil {
		p.logger.Warn("writing query audit event", "audit_id", event.ID, "error", logErr)
	}

	if err != nil {
		return toolError(err)
	}
	return toolResult(resp)
}

func (p *Platform) handleListTables(_ context.Context, _ *mcp.CallToolRequest, in listTablesInput) (*mcp.CallToolResult, any, error) {
	all := p.handler.Tables()
	if in.Family != "" {
		all = p.handler.TablesByFamily(tables.Family(in.Family))
	}
	infos := make([]handler.TableInfo, 0, len(all))
	for _, t := range all {
		pushdown := t.Pushdown()
		if pushdown == nil {
			pushdown = []string{}
		}
		infos = append(infos, handler.TableInfo{
			Name:     t.Name(),
			Family:   string(t.Family()),
			Resource: t.Resource().String(),
			Pushdown: pushdown,
		})
	}
	return toolResult(infos)
}

func (p *Platform) handleQueryHistory(ctx context.Context, _ *mcp.CallToolRequest, in queryHistoryInput) (*mcp.CallToolResult, any, error) {
	filter := audit.QueryFilter{
		Table: in.Table,
		Limit: clamp(in.Limit, defaultHistoryLimit, maxHistoryLimit),
	}
	if in.FailedOnly {
		failed := false
		filter.Success = &failed
	}

	events, err := p.auditLogger.Query(ctx, filter)
	if err != nil {
		return toolError(err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	out := queryHistory{Events: events}

	if p.auditCounter != nil {
		filter.Limit = 0
		total, err := p.auditCounter.Count(ctx, filter)
		if err != nil {
			return toolError(err)
		}
		out.Total = &total
	}
	return toolResult(out)
}

func (p *Platform) handleQueryStats(ctx context.Context, _ *mcp.CallToolRequest, in queryStatsInput) (*mcp.CallToolResult, any, error) {
	groupBy := audit.BreakdownByTable
	if in.GroupBy != "" {
		groupBy = audit.BreakdownDimension(in.GroupBy)
	}
	filter := audit.BreakdownFilter{GroupBy: groupBy}
	if in.Hours > 0 {
		from := time.Now().Add(-time.Duration(in.Hours) * time.Hour)
		filter.StartTime = &from
	}

	entries, err := p.auditStats.Breakdown(ctx, filter)
	if err != nil {
		return toolError(err)
	}
	return toolResult(entries)
}

// pushdownOf flattens the upstream request of a plan.
func pushdownOf(plan *tables.Plan) map[string]any {
	out := map[string]any{"resource": plan.Request.Resource.String()}
	for k, v := range plan.Request.Values() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func residualOf(plan *tables.Plan) []string {
	if len(plan.Residual) == 0 {
		return nil
	}
	out := make([]string, len(plan.Residual))
	for i, pred := range plan.Residual {
		out[i] = pred.String()
	}
	return out
}

func clamp(n, def, maxN int) int {
	if n <= 0 {
		return def
	}
	return min(n, maxN)
}

// toolResult renders v as indented JSON text content.
func toolResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encoding result: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// toolError reports err to the client as a failed tool call.
func toolError(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{ //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}, nil, nil
}
