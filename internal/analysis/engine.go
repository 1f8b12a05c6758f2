// Package analysis aggregates filing facts into value-centred fact tables
// and multi-period time series.
package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/source"
)

var (
	// ErrInvalidConfig marks a missing or invalid parameter.
	ErrInvalidConfig = eris.New("analysis: invalid configuration")
	// ErrNoData is returned when no period yielded matching facts.
	ErrNoData = eris.New("analysis: no period data")
)

// ExactMatchThreshold is the absolute deviation, in currency units, below
// which a fact counts as an exact match regardless of currency.
const ExactMatchThreshold = 1000.0

// Engine runs fact-table and time-series analyses against filing sources.
// An Engine holds no per-call state and may be shared.
type Engine struct {
	sources  source.Set
	pacer    resilience.Pacer
	newRunID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPacer sets the delay policy between period fetches.
func WithPacer(p resilience.Pacer) Option {
	return func(e *Engine) {
		if p != nil {
			e.pacer = p
		}
	}
}

// WithRunID overrides run id generation (for testing).
func WithRunID(fn func() string) Option {
	return func(e *Engine) {
		e.newRunID = fn
	}
}

// NewEngine creates an Engine over the given sources.
func NewEngine(sources source.Set, opts ...Option) *Engine {
	e := &Engine{
		sources:  sources,
		pacer:    resilience.NoPacer{},
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultFilingLimit is the listing size when none is given.
const DefaultFilingLimit = 10

// FilingList is the output of ListFilings.
type FilingList struct {
	Country   source.Country     `json:"country"`
	CompanyID string             `json:"company_id"`
	Filings   []source.PeriodRef `json:"filings"`
}

// ListFilings returns the company's recent periodic filings, newest first.
func (e *Engine) ListFilings(ctx context.Context, country, companyID string, limit int) (*FilingList, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, eris.Wrap(ErrInvalidConfig, "company id is required")
	}
	if limit < 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "limit must be positive, got %d", limit)
	}
	if limit == 0 {
		limit = DefaultFilingLimit
	}
	src, err := e.lookup(country)
	if err != nil {
		return nil, err
	}
	refs, err := src.ListFilings(ctx, companyID, limit)
	if err != nil {
		return nil, eris.Wrap(configError(err), "analysis: list filings")
	}
	if refs == nil {
		refs = []source.PeriodRef{}
	}
	return &FilingList{Country: src.Country(), CompanyID: companyID, Filings: refs}, nil
}

// lookup resolves the country's source, reporting unknown countries as
// configuration errors.
func (e *Engine) lookup(country string) (source.Source, error) {
	src, err := e.sources.Lookup(country)
	if err != nil {
		return nil, configError(err)
	}
	return src, nil
}

// configError rewraps caller mistakes reported by a source as
// ErrInvalidConfig. Other errors pass through.
func configError(err error) error {
	if errors.Is(err, source.ErrInvalidInput) {
		return eris.Wrap(ErrInvalidConfig, err.Error())
	}
	return err
}
