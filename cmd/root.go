package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
)

// version is set at build time.
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "disclosure-cli",
	Short:   "Fact tables and time series from EDINET and DART filings",
	Long:    "Downloads Japanese (EDINET) and Korean (DART) regulatory filings, extracts XBRL facts, and builds value-centred fact tables and multi-period time series.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
