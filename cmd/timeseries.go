package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/analysis"
)

var timeSeriesFlags struct {
	country    string
	company    string
	concept    string
	periods    int
	noGeo      bool
	noSegments bool
	noGrowth   bool
	minValue   float64
	maxValue   float64
}

var timeSeriesCmd = &cobra.Command{
	Use:     "time-series",
	Short:   "Track a concept across a company's recent filing periods",
	Example: `  disclosure-cli time-series --country JP --company E02144 --concept NetSales --periods 4`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := timeSeriesFlags
		e, err := newEngine(cfg, f.country)
		if err != nil {
			return err
		}

		opts := analysis.DefaultTimeSeriesOptions()
		opts.Concept = f.concept
		opts.Periods = f.periods
		opts.IncludeGeography = !f.noGeo
		opts.IncludeSegments = !f.noSegments
		opts.ShowGrowthRates = !f.noGrowth
		if cmd.Flags().Changed("min-value") {
			opts.MinValue = &f.minValue
		}
		if cmd.Flags().Changed("max-value") {
			opts.MaxValue = &f.maxValue
		}

		res, err := e.TimeSeriesAnalysis(cmd.Context(), analysis.TimeSeriesParams{
			Country:   f.country,
			CompanyID: f.company,
			Options:   opts,
		})
		if err != nil {
			return eris.Wrap(err, "time-series")
		}
		return writeResult(os.Stdout, outputFormat, res)
	},
}

func init() {
	fl := timeSeriesCmd.Flags()
	fl.StringVar(&timeSeriesFlags.country, "country", "", "JP or KR (required)")
	fl.StringVar(&timeSeriesFlags.company, "company", "", "EDINET code / securities code (JP) or corp_code (KR) (required)")
	fl.StringVar(&timeSeriesFlags.concept, "concept", "Revenue", "concept substring to track")
	fl.IntVar(&timeSeriesFlags.periods, "periods", 4, "number of periods with data to collect")
	fl.BoolVar(&timeSeriesFlags.noGeo, "no-geography", false, "skip the geographic mix")
	fl.BoolVar(&timeSeriesFlags.noSegments, "no-segments", false, "skip the segment mix")
	fl.BoolVar(&timeSeriesFlags.noGrowth, "no-growth", false, "skip growth rates")
	fl.Float64Var(&timeSeriesFlags.minValue, "min-value", 0, "ignore facts below this value")
	fl.Float64Var(&timeSeriesFlags.maxValue, "max-value", 0, "ignore facts above this value")
	_ = timeSeriesCmd.MarkFlagRequired("country")
	_ = timeSeriesCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(timeSeriesCmd)
}
