package main

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

var parseFlags struct {
	file        string
	structured  bool
	includeText bool
	concept     string
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a downloaded filing offline and print its facts",
	Long:  "Parses an inline XBRL document, an EDINET XBRL archive (.zip), or a DART financial statement JSON payload (--structured).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := parseFlags
		res, err := parseFile(f.file, f.structured, f.includeText)
		if err != nil {
			return err
		}
		if f.concept != "" {
			res.Facts = xbrl.Filter(res.Facts, xbrl.Criteria{Concept: f.concept})
		}
		return writeResult(os.Stdout, outputFormat, res)
	},
}

// parseFile picks the parser from the flags and the file content.
func parseFile(path string, structured, includeText bool) (*xbrl.ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parse: read %s", path)
	}
	opts := xbrl.MarkupOptions{IncludeNonNumeric: includeText}
	switch {
	case structured:
		return xbrl.ParseStructured(bytes.NewReader(data))
	case fetcher.IsZIP(data):
		return source.ParseXBRLArchive(data, opts)
	default:
		return xbrl.ParseMarkup(bytes.NewReader(data), opts)
	}
}

func init() {
	fl := parseCmd.Flags()
	fl.StringVar(&parseFlags.file, "file", "", "path to the filing (required)")
	fl.BoolVar(&parseFlags.structured, "structured", false, "the file is a DART fnlttSinglAcntAll JSON payload")
	fl.BoolVar(&parseFlags.includeText, "include-text", false, "also emit text and unparseable facts")
	fl.StringVar(&parseFlags.concept, "concept", "", "only facts whose concept contains this text")
	_ = parseCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(parseCmd)
}
