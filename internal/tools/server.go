// Package tools serves the analysis engine as MCP tools over stdio.
package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/analysis"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

// Analyzer is the engine surface the tools call.
type Analyzer interface {
	BuildFactTable(ctx context.Context, p analysis.FactTableParams) (*analysis.FactTableResult, error)
	TimeSeriesAnalysis(ctx context.Context, p analysis.TimeSeriesParams) (*analysis.TimeSeriesResult, error)
	ListFilings(ctx context.Context, country, companyID string, limit int) (*analysis.FilingList, error)
}

// Tool names.
const (
	ToolBuildFactTable  = "build_fact_table"
	ToolTimeSeries      = "time_series_analysis"
	ToolListFilings     = "list_filings"
	ToolClassifyConcept = "classify_concept"
)

// NewServer registers every tool on a new MCP server.
func NewServer(a Analyzer, version string) *server.MCPServer {
	s := server.NewMCPServer("disclosure-cli", version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	s.AddTools(Tools(a)...)
	return s
}

// Serve runs the MCP server on stdio until the input closes.
func Serve(a Analyzer, version string) error {
	zap.L().Info("tools: serving MCP on stdio")
	return server.ServeStdio(NewServer(a, version))
}

// Tools returns the tool definitions bound to a.
func Tools(a Analyzer) []server.ServerTool {
	h := &handlers{analyzer: a}
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolBuildFactTable,
				mcp.WithDescription("Find the facts of one filing whose values lie within tolerance of a target value."),
				countryParam(),
				companyParam(),
				mcp.WithNumber("target_value", mcp.Required(), mcp.Description("Value to centre the search on")),
				mcp.WithNumber("tolerance", mcp.Required(), mcp.Description("Allowed absolute deviation from the target")),
				mcp.WithString("document_id", mcp.Description("EDINET docID (latest filing when empty) or DART \"year:reportCode\" (required for KR)")),
				mcp.WithString("sort_by", mcp.Description("deviation, value or concept"), mcp.Enum(analysis.SortByDeviation, analysis.SortByValue, analysis.SortByConcept)),
				mcp.WithNumber("max_rows", mcp.Description("Maximum table rows (default 25)")),
				mcp.WithString("concept", mcp.Description("Only concepts containing this text")),
				mcp.WithString("period", mcp.Description("Only facts whose period contains this text")),
			),
			Handler: h.buildFactTable,
		},
		{
			Tool: mcp.NewTool(ToolTimeSeries,
				mcp.WithDescription("Track a concept across a company's recent filing periods with growth, mix and trend."),
				countryParam(),
				companyParam(),
				mcp.WithString("concept", mcp.Description("Concept substring to track (default Revenue)")),
				mcp.WithNumber("periods", mcp.Description("Number of periods with data to collect (default 4)")),
				mcp.WithBoolean("include_geography", mcp.Description("Include geographic mix (default true)")),
				mcp.WithBoolean("include_segments", mcp.Description("Include segment mix (default true)")),
				mcp.WithBoolean("show_growth_rates", mcp.Description("Compute growth rates (default true)")),
				mcp.WithNumber("min_value", mcp.Description("Ignore facts below this value")),
				mcp.WithNumber("max_value", mcp.Description("Ignore facts above this value")),
			),
			Handler: h.timeSeries,
		},
		{
			Tool: mcp.NewTool(ToolListFilings,
				mcp.WithDescription("List a company's recent periodic filings, newest first."),
				countryParam(),
				companyParam(),
				mcp.WithNumber("limit", mcp.Description("Maximum filings (default 10)")),
			),
			Handler: h.listFilings,
		},
		{
			Tool: mcp.NewTool(ToolClassifyConcept,
				mcp.WithDescription("Map an accounting concept name (English, Japanese or Korean) to a business category."),
				mcp.WithString("concept", mcp.Required(), mcp.Description("Concept or account name")),
			),
			Handler: h.classifyConcept,
		},
	}
}

func countryParam() mcp.ToolOption {
	return mcp.WithString("country", mcp.Required(), mcp.Description("JP (EDINET) or KR (DART)"), mcp.Enum("JP", "KR"))
}

func companyParam() mcp.ToolOption {
	return mcp.WithString("company_id", mcp.Required(), mcp.Description("EDINET code or securities code (JP), corp_code (KR)"))
}

type handlers struct {
	analyzer Analyzer
}

func (h *handlers) buildFactTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country, err := req.RequireString("country")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	company, err := req.RequireString("company_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireFloat("target_value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tolerance, err := req.RequireFloat("tolerance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := analysis.DefaultFactTableOptions()
	opts.SortBy = req.GetString("sort_by", opts.SortBy)
	opts.MaxRows = req.GetInt("max_rows", opts.MaxRows)
	opts.Criteria = xbrl.Criteria{
		Concept: req.GetString("concept", ""),
		Period:  req.GetString("period", ""),
	}

	res, err := h.analyzer.BuildFactTable(ctx, analysis.FactTableParams{
		Country:     country,
		CompanyID:   company,
		TargetValue: target,
		Tolerance:   tolerance,
		DocumentID:  req.GetString("document_id", ""),
		Options:     opts,
	})
	return jsonResult(res, err)
}

func (h *handlers) timeSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country, err := req.RequireString("country")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	company, err := req.RequireString("company_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := analysis.DefaultTimeSeriesOptions()
	opts.Concept = req.GetString("concept", opts.Concept)
	opts.Periods = req.GetInt("periods", opts.Periods)
	opts.IncludeGeography = req.GetBool("include_geography", opts.IncludeGeography)
	opts.IncludeSegments = req.GetBool("include_segments", opts.IncludeSegments)
	opts.ShowGrowthRates = req.GetBool("show_growth_rates", opts.ShowGrowthRates)
	opts.MinValue = optionalFloat(req, "min_value")
	opts.MaxValue = optionalFloat(req, "max_value")

	res, err := h.analyzer.TimeSeriesAnalysis(ctx, analysis.TimeSeriesParams{
		Country:   country,
		CompanyID: company,
		Options:   opts,
	})
	return jsonResult(res, err)
}

func (h *handlers) listFilings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country, err := req.RequireString("country")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	company, err := req.RequireString("company_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := h.analyzer.ListFilings(ctx, country, company, req.GetInt("limit", 0))
	return jsonResult(res, err)
}

func (h *handlers) classifyConcept(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	concept, err := req.RequireString("concept")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{
		"concept":  concept,
		"category": string(xbrl.Classify(concept)),
	}, nil)
}

func optionalFloat(req mcp.CallToolRequest, key string) *float64 {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	v, err := req.RequireFloat(key)
	if err != nil {
		return nil
	}
	return &v
}

// jsonResult renders v as indented JSON text. Engine errors become tool
// errors so the calling model sees the message.
func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		zap.L().Warn("tools: call failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
