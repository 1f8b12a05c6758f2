package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/disclosure-cli/internal/analysis"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatJSON, "output format: json or yaml")
}

// writeResult encodes v in the requested format. YAML keys follow the
// JSON field names.
func writeResult(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "output: encode json")
	}

	switch strings.ToLower(format) {
	case formatJSON, "":
		data = append(data, '\n')
		_, err = w.Write(data)
		return eris.Wrap(err, "output: write")
	case formatYAML, "yml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return eris.Wrap(err, "output: convert to yaml")
		}
		blockStyle(&doc)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		_, err = w.Write(buf.Bytes())
		return eris.Wrap(err, "output: write")
	default:
		return eris.Errorf("output: unknown format %q", format)
	}
}

// blockStyle clears the flow style the JSON input leaves on every node.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

var factTableHeader = []string{
	"Row", "Concept", "Namespace", "Account Name", "Value", "Deviation", "Deviation %",
	"Exact", "Period", "Period Type", "Business Type", "Geography", "Segment", "Product", "Context",
}

// writeFactTableXLSX saves the table rows to one sheet and the
// breakdowns to a second.
func writeFactTableXLSX(path string, res *analysis.FactTableResult) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Facts")
	if err != nil {
		return eris.Wrap(err, "output: add facts sheet")
	}
	addRow(sheet, factTableHeader...)
	for _, r := range res.Table {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Row)
		row.AddCell().SetString(r.Concept)
		row.AddCell().SetString(r.Namespace)
		row.AddCell().SetString(r.AccountName)
		row.AddCell().SetFloat(r.Value)
		row.AddCell().SetFloat(r.DeviationFromTarget)
		row.AddCell().SetString(r.DeviationPercent)
		row.AddCell().SetBool(r.ExactMatch)
		row.AddCell().SetString(r.Period)
		row.AddCell().SetString(r.PeriodType)
		row.AddCell().SetString(string(r.BusinessType))
		row.AddCell().SetString(deref(r.Geography))
		row.AddCell().SetString(deref(r.Segment))
		row.AddCell().SetString(deref(r.Product))
		row.AddCell().SetString(r.ContextRef)
	}

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "output: add summary sheet")
	}
	addRow(summary, "Company", res.CompanyID)
	addRow(summary, "Document", res.Document.ID)
	addRow(summary, "Search Range", res.Summary.SearchRange.FormattedMin+" - "+res.Summary.SearchRange.FormattedMax)
	addRow(summary, "Total Matches", strconv.Itoa(res.Summary.TotalMatches))
	addRow(summary, "Exact Matches", strconv.Itoa(res.Summary.ExactMatches))
	addRow(summary)
	addRow(summary, "Breakdown", "Label", "Count", "Total")
	for _, b := range res.Summary.GeographicBreakdown {
		addRow(summary, "Geography", b.Label, strconv.Itoa(b.Count), b.FormattedTotal)
	}
	for _, b := range res.Summary.SegmentBreakdown {
		addRow(summary, "Segment", b.Label, strconv.Itoa(b.Count), b.FormattedTotal)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "output: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
