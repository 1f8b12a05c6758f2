package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/analysis"
)

var factTableFlags struct {
	country   string
	company   string
	target    float64
	tolerance float64
	document  string
	sortBy    string
	maxRows   int
	concept   string
	period    string
	xlsxPath  string
}

var factTableCmd = &cobra.Command{
	Use:   "fact-table",
	Short: "List the facts of one filing whose values lie near a target",
	Example: `  disclosure-cli fact-table --country JP --company E02144 --target 45000000000000 --tolerance 500000000000
  disclosure-cli fact-table --country KR --company 00126380 --document 2023:11011 --target 258935494000000 --tolerance 1e12`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := factTableFlags
		e, err := newEngine(cfg, f.country)
		if err != nil {
			return err
		}

		opts := analysis.DefaultFactTableOptions()
		opts.SortBy = f.sortBy
		opts.MaxRows = f.maxRows
		opts.Criteria.Concept = f.concept
		opts.Criteria.Period = f.period

		res, err := e.BuildFactTable(cmd.Context(), analysis.FactTableParams{
			Country:     f.country,
			CompanyID:   f.company,
			TargetValue: f.target,
			Tolerance:   f.tolerance,
			DocumentID:  f.document,
			Options:     opts,
		})
		if err != nil {
			return eris.Wrap(err, "fact-table")
		}

		if f.xlsxPath != "" {
			if err := writeFactTableXLSX(f.xlsxPath, res); err != nil {
				return err
			}
			zap.L().Info("fact table saved", zap.String("path", f.xlsxPath), zap.Int("rows", len(res.Table)))
			fmt.Fprintf(os.Stderr, "Saved %d rows to %s\n", len(res.Table), f.xlsxPath)
		}
		return writeResult(os.Stdout, outputFormat, res)
	},
}

func init() {
	fl := factTableCmd.Flags()
	fl.StringVar(&factTableFlags.country, "country", "", "JP or KR (required)")
	fl.StringVar(&factTableFlags.company, "company", "", "EDINET code / securities code (JP) or corp_code (KR) (required)")
	fl.Float64Var(&factTableFlags.target, "target", 0, "target value")
	fl.Float64Var(&factTableFlags.tolerance, "tolerance", 0, "allowed absolute deviation from the target")
	fl.StringVar(&factTableFlags.document, "document", "", "EDINET docID (default latest) or DART year:reportCode")
	fl.StringVar(&factTableFlags.sortBy, "sort", analysis.SortByDeviation, "sort order: deviation, value or concept")
	fl.IntVar(&factTableFlags.maxRows, "max-rows", 25, "maximum table rows")
	fl.StringVar(&factTableFlags.concept, "concept", "", "only concepts containing this text")
	fl.StringVar(&factTableFlags.period, "period", "", "only facts whose period contains this text")
	fl.StringVar(&factTableFlags.xlsxPath, "xlsx", "", "also save the table to this .xlsx file")
	_ = factTableCmd.MarkFlagRequired("country")
	_ = factTableCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(factTableCmd)
}
