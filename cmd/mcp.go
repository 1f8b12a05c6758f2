package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools to an MCP client over stdio",
	Long:  "Runs an MCP server on stdin/stdout exposing build_fact_table, time_series_analysis, list_filings and classify_concept. Logs go to stderr.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := newEngine(cfg, "")
		if err != nil {
			return err
		}
		return tools.Serve(e, version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
