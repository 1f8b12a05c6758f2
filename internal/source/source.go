// Package source adapts the EDINET and DART APIs to a common filing source
// so aggregation code never branches on country.
package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

// ErrInvalidInput marks a caller mistake: an unsupported country or a
// malformed document id.
var ErrInvalidInput = eris.New("source: invalid input")

// ErrNotFound is returned when a company has no matching filing.
var ErrNotFound = eris.New("source: filing not found")

// Country identifies a filing jurisdiction.
type Country string

// Supported countries.
const (
	JP Country = "JP"
	KR Country = "KR"
)

// ParseCountry accepts a country code in any case.
func ParseCountry(s string) (Country, error) {
	switch c := Country(strings.ToUpper(strings.TrimSpace(s))); c {
	case JP, KR:
		return c, nil
	default:
		return "", eris.Wrapf(ErrInvalidInput, "unsupported country %q", s)
	}
}

// PeriodRef identifies one filing period of a company.
type PeriodRef struct {
	// ID is the EDINET docID, or "businessYear:reportCode" for DART.
	ID           string `json:"id"`
	Period       string `json:"period"`
	SubmitDate   string `json:"submit_date,omitempty"`
	BusinessYear string `json:"business_year,omitempty"`
	ReportCode   string `json:"report_code,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	Title        string `json:"title,omitempty"`
	Filer        string `json:"filer,omitempty"`
	ReceiptNo    string `json:"receipt_no,omitempty"`
}

// Source retrieves filing periods and their facts for one country.
type Source interface {
	Country() Country
	// CurrencySymbol is the symbol amounts are reported in.
	CurrencySymbol() string
	// ScanLimit is how many candidate periods to examine when collecting
	// periods that each hold data.
	ScanLimit(periods int) int
	// ListRecentPeriods returns up to limit periods, newest first.
	ListRecentPeriods(ctx context.Context, companyID string, limit int) ([]PeriodRef, error)
	// FetchPeriodFacts returns the parsed facts of one period.
	FetchPeriodFacts(ctx context.Context, companyID string, ref PeriodRef) (*xbrl.ParseResult, error)
	// ResolveDocument turns a caller-supplied document id (possibly empty)
	// into a period.
	ResolveDocument(ctx context.Context, companyID, documentID string) (PeriodRef, error)
	// ListFilings returns recent periodic filings for display.
	ListFilings(ctx context.Context, companyID string, limit int) ([]PeriodRef, error)
}

// Set holds one Source per country.
type Set map[Country]Source

// NewSet indexes sources by their country.
func NewSet(sources ...Source) Set {
	s := make(Set, len(sources))
	for _, src := range sources {
		s[src.Country()] = src
	}
	return s
}

// Lookup parses country and returns its source.
func (s Set) Lookup(country string) (Source, error) {
	c, err := ParseCountry(country)
	if err != nil {
		return nil, err
	}
	src, ok := s[c]
	if !ok {
		return nil, eris.Wrapf(ErrInvalidInput, "no source configured for %s", c)
	}
	return src, nil
}
