package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/analysis"
)

var filingsFlags struct {
	country string
	company string
	limit   int
	table   bool
}

var filingsCmd = &cobra.Command{
	Use:   "filings",
	Short: "List a company's recent periodic filings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := filingsFlags
		e, err := newEngine(cfg, f.country)
		if err != nil {
			return err
		}
		list, err := e.ListFilings(cmd.Context(), f.country, f.company, f.limit)
		if err != nil {
			return eris.Wrap(err, "filings")
		}
		if len(list.Filings) == 0 {
			fmt.Fprintln(os.Stderr, "No filings found.")
			return nil
		}
		if f.table {
			formatFilings(os.Stdout, list)
			return nil
		}
		return writeResult(os.Stdout, outputFormat, list)
	},
}

func formatFilings(w io.Writer, list *analysis.FilingList) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERIOD\tSUBMITTED\tTYPE\tTITLE")
	for _, r := range list.Filings {
		kind := r.DocType
		if kind == "" {
			kind = r.ReportCode
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Period, r.SubmitDate, kind, r.Title)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	fl := filingsCmd.Flags()
	fl.StringVar(&filingsFlags.country, "country", "", "JP or KR (required)")
	fl.StringVar(&filingsFlags.company, "company", "", "EDINET code / securities code (JP) or corp_code (KR) (required)")
	fl.IntVar(&filingsFlags.limit, "limit", analysis.DefaultFilingLimit, "maximum filings")
	fl.BoolVar(&filingsFlags.table, "table", false, "print an aligned table instead of structured output")
	_ = filingsCmd.MarkFlagRequired("country")
	_ = filingsCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(filingsCmd)
}
