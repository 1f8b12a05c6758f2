package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/analysis"
	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/pkg/dart"
	"github.com/sells-group/disclosure-cli/pkg/edinet"
)

// newSources builds a source for every country with an API key. mode
// names the country a command needs; empty accepts whatever is configured.
func newSources(c *config.Config, mode string) (source.Set, error) {
	if mode != "" {
		if err := c.Validate(mode); err != nil {
			return nil, err
		}
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.HTTP.UserAgent,
		Timeout:    c.HTTP.Timeout(),
		MaxRetries: c.HTTP.MaxRetries,
	})

	var srcs []source.Source
	if c.EDINET.APIKey != "" {
		client := edinet.NewClient(c.EDINET.APIKey, f, edinet.WithBaseURL(c.EDINET.BaseURL))
		srcs = append(srcs, source.NewEDINET(client, source.EDINETOptions{
			ScanDays:  c.EDINET.ScanDays,
			DocTypes:  c.EDINET.DocTypes,
			DatePacer: resilience.NewFixedPacer(c.Pacing.DateDelay()),
		}))
	}
	if c.DART.APIKey != "" {
		client := dart.NewClient(c.DART.APIKey, f, dart.WithBaseURL(c.DART.BaseURL), dart.WithFSDiv(c.DART.FSDiv))
		srcs = append(srcs, source.NewDART(client, source.DARTOptions{}))
	}
	if len(srcs) == 0 {
		return nil, eris.New("wiring: no API key configured (set EDINET_API_KEY or DART_API_KEY)")
	}
	return source.NewSet(srcs...), nil
}

// newEngine wires the engine for a command. country may be empty.
func newEngine(c *config.Config, country string) (*analysis.Engine, error) {
	mode := ""
	if country != "" {
		cc, err := source.ParseCountry(country)
		if err != nil {
			return nil, err
		}
		mode = string(cc)
	}
	set, err := newSources(c, mode)
	if err != nil {
		return nil, err
	}
	return analysis.NewEngine(set, analysis.WithPacer(resilience.NewFixedPacer(c.Pacing.FilingDelay()))), nil
}
