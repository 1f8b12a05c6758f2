package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/analysis"
	"github.com/sells-group/disclosure-cli/internal/source"
)

type fakeAnalyzer struct {
	err        error
	factParams analysis.FactTableParams
	series     analysis.TimeSeriesParams
	limit      int
}

func (f *fakeAnalyzer) BuildFactTable(_ context.Context, p analysis.FactTableParams) (*analysis.FactTableResult, error) {
	f.factParams = p
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.FactTableResult{RunID: "run-1", CompanyID: p.CompanyID}, nil
}

func (f *fakeAnalyzer) TimeSeriesAnalysis(_ context.Context, p analysis.TimeSeriesParams) (*analysis.TimeSeriesResult, error) {
	f.series = p
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.TimeSeriesResult{RunID: "run-2", CompanyID: p.CompanyID}, nil
}

func (f *fakeAnalyzer) ListFilings(_ context.Context, _, companyID string, limit int) (*analysis.FilingList, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.FilingList{Country: source.KR, CompanyID: companyID, Filings: []source.PeriodRef{{ID: "2023:11011"}}}, nil
}

func toolByName(t *testing.T, tools []server.ServerTool, name string) server.ServerTool {
	t.Helper()
	for _, tool := range tools {
		if tool.Tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not registered", name)
	return server.ServerTool{}
}

func call(t *testing.T, a Analyzer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := toolByName(t, Tools(a), name)
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestTools_Registered(t *testing.T) {
	tools := Tools(&fakeAnalyzer{})
	require.Len(t, tools, 4)
	for _, name := range []string{ToolBuildFactTable, ToolTimeSeries, ToolListFilings, ToolClassifyConcept} {
		tool := toolByName(t, tools, name)
		assert.NotEmpty(t, tool.Tool.Description)
	}
	assert.Contains(t, toolByName(t, tools, ToolBuildFactTable).Tool.InputSchema.Required, "target_value")

	assert.NotNil(t, NewServer(&fakeAnalyzer{}, "test"))
}

func TestBuildFactTable(t *testing.T) {
	fa := &fakeAnalyzer{}
	res := call(t, fa, ToolBuildFactTable, map[string]any{
		"country":      "JP",
		"company_id":   "E02144",
		"target_value": 1000000.0,
		"tolerance":    50000.0,
		"max_rows":     5.0,
		"concept":      "Revenue",
	})
	assert.False(t, res.IsError)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, "run-1", out["run_id"])

	p := fa.factParams
	assert.Equal(t, "E02144", p.CompanyID)
	assert.Equal(t, 1000000.0, p.TargetValue)
	assert.Equal(t, 50000.0, p.Tolerance)
	assert.Equal(t, 5, p.Options.MaxRows)
	assert.Equal(t, analysis.SortByDeviation, p.Options.SortBy)
	assert.Equal(t, "Revenue", p.Options.Criteria.Concept)
}

func TestBuildFactTable_MissingArgument(t *testing.T) {
	res := call(t, &fakeAnalyzer{}, ToolBuildFactTable, map[string]any{"country": "JP", "company_id": "E02144"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "target_value")
}

func TestTimeSeries(t *testing.T) {
	fa := &fakeAnalyzer{}
	res := call(t, fa, ToolTimeSeries, map[string]any{
		"country":          "KR",
		"company_id":       "00126380",
		"periods":          3.0,
		"include_segments": false,
		"min_value":        0.0,
	})
	assert.False(t, res.IsError)

	opts := fa.series.Options
	assert.Equal(t, "Revenue", opts.Concept)
	assert.Equal(t, 3, opts.Periods)
	assert.True(t, opts.IncludeGeography)
	assert.False(t, opts.IncludeSegments)
	assert.True(t, opts.ShowGrowthRates)
	require.NotNil(t, opts.MinValue)
	assert.Equal(t, 0.0, *opts.MinValue)
	assert.Nil(t, opts.MaxValue)
}

func TestEngineErrorBecomesToolError(t *testing.T) {
	fa := &fakeAnalyzer{err: eris.Wrap(analysis.ErrNoData, "no \"Goodwill\" facts")}
	res := call(t, fa, ToolTimeSeries, map[string]any{"country": "JP", "company_id": "E02144"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Goodwill")
}

func TestListFilings(t *testing.T) {
	fa := &fakeAnalyzer{}
	res := call(t, fa, ToolListFilings, map[string]any{"country": "KR", "company_id": "00126380", "limit": 2.0})
	assert.False(t, res.IsError)
	assert.Equal(t, 2, fa.limit)
	assert.Contains(t, text(t, res), "2023:11011")
}

func TestClassifyConcept(t *testing.T) {
	res := call(t, &fakeAnalyzer{}, ToolClassifyConcept, map[string]any{"concept": "매출원가"})
	assert.False(t, res.IsError)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, "Cost of Sales", out["category"])

	res = call(t, &fakeAnalyzer{}, ToolClassifyConcept, map[string]any{})
	assert.True(t, res.IsError)
}
