package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/disclosure-cli/internal/analysis"
	"github.com/sells-group/disclosure-cli/internal/source"
)

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	list := &analysis.FilingList{Country: source.JP, CompanyID: "E02144", Filings: []source.PeriodRef{{ID: "S100TEST", Period: "2024-03-31"}}}
	require.NoError(t, writeResult(&buf, "json", list))

	assert.JSONEq(t, `{"country":"JP","company_id":"E02144","filings":[{"id":"S100TEST","period":"2024-03-31"}]}`, buf.String())
}

func TestWriteResult_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	list := &analysis.FilingList{Country: source.KR, CompanyID: "00126380", Filings: []source.PeriodRef{{ID: "2023:11011", Period: "2023"}}}
	require.NoError(t, writeResult(&buf, "yaml", list))

	out := buf.String()
	assert.Contains(t, out, "company_id:")
	assert.NotContains(t, out, "{")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "00126380", back["company_id"])
	assert.Equal(t, "KR", back["country"])
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	err := writeResult(&bytes.Buffer{}, "csv", map[string]int{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestWriteFactTableXLSX(t *testing.T) {
	geo := "Japan"
	res := &analysis.FactTableResult{
		CompanyID: "E02144",
		Document:  source.PeriodRef{ID: "S100TEST"},
		Table: []analysis.FactRow{
			{Row: 1, Concept: "NetSales", Namespace: "jppfs_cor", Value: 1020000, DeviationFromTarget: 20000, DeviationPercent: "2.00%", Geography: &geo},
		},
		Summary: analysis.FactTableSummary{
			TotalMatches: 1,
			SearchRange:  analysis.ValueRange{FormattedMin: "¥950,000", FormattedMax: "¥1,050,000"},
			GeographicBreakdown: []analysis.Breakdown{
				{Label: "Japan", Count: 1, FormattedTotal: "¥1,020,000"},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "facts.xlsx")
	require.NoError(t, writeFactTableXLSX(path, res))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	facts := file.Sheets[0]
	assert.Equal(t, "Facts", facts.Name)
	require.Len(t, facts.Rows, 2)
	assert.Equal(t, "Concept", facts.Rows[0].Cells[1].String())
	assert.Equal(t, "NetSales", facts.Rows[1].Cells[1].String())
	assert.Equal(t, "Japan", facts.Rows[1].Cells[11].String())

	summary := file.Sheets[1]
	assert.Equal(t, "Summary", summary.Name)
	assert.Equal(t, "¥950,000 - ¥1,050,000", summary.Rows[2].Cells[1].String())
}
