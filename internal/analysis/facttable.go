package analysis

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

// Fact table sort orders.
const (
	SortByDeviation = "deviation"
	SortByValue     = "value"
	SortByConcept   = "concept"
)

// FactTableOptions tunes BuildFactTable.
type FactTableOptions struct {
	// SortBy is SortByDeviation (ascending |deviation|), SortByValue
	// (descending) or SortByConcept (ascending).
	SortBy string `json:"sort_by" yaml:"sort_by"`
	// MaxRows truncates the table; the summary still covers every match.
	MaxRows int `json:"max_rows" yaml:"max_rows"`
	// Criteria adds filters on top of the value window.
	Criteria xbrl.Criteria `json:"criteria" yaml:"criteria"`
}

// DefaultFactTableOptions returns the documented defaults.
func DefaultFactTableOptions() FactTableOptions {
	return FactTableOptions{SortBy: SortByDeviation, MaxRows: 25}
}

// FactTableParams are the inputs of BuildFactTable.
type FactTableParams struct {
	Country     string  `json:"country"`
	CompanyID   string  `json:"company_id"`
	TargetValue float64 `json:"target_value"`
	Tolerance   float64 `json:"tolerance"`
	// DocumentID selects a filing. JP: an EDINET docID, empty for the
	// latest filing. KR: "businessYear:reportCode", required.
	DocumentID string           `json:"document_id,omitempty"`
	Options    FactTableOptions `json:"options"`
}

// FactRow is one fact enriched for presentation.
type FactRow struct {
	Row                 int             `json:"row"`
	Namespace           string          `json:"namespace"`
	Concept             string          `json:"concept"`
	AccountName         string          `json:"account_name,omitempty"`
	Value               float64         `json:"value"`
	FormattedValue      string          `json:"formatted_value"`
	DeviationFromTarget float64         `json:"deviation_from_target"`
	FormattedDeviation  string          `json:"formatted_deviation"`
	DeviationPercent    string          `json:"deviation_percent"`
	ExactMatch          bool            `json:"exact_match"`
	Period              string          `json:"period"`
	PeriodType          string          `json:"period_type"`
	BusinessType        xbrl.Category   `json:"business_type"`
	Geography           *string         `json:"geography"`
	Segment             *string         `json:"segment"`
	Product             *string         `json:"product"`
	HasGeography        bool            `json:"has_geography"`
	HasSegment          bool            `json:"has_segment"`
	HasProduct          bool            `json:"has_product"`
	Dimensions          xbrl.Dimensions `json:"dimensions"`
	ContextRef          string          `json:"context_ref,omitempty"`
	UnitRef             string          `json:"unit_ref,omitempty"`
	Decimals            string          `json:"decimals,omitempty"`
	Scale               int             `json:"scale"`
}

// ValueRange is a numeric window with its formatted bounds.
type ValueRange struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	FormattedMin string  `json:"formatted_min"`
	FormattedMax string  `json:"formatted_max"`
}

// ValueStats summarises the matched values.
type ValueStats struct {
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Average          float64 `json:"average"`
	FormattedMin     string  `json:"formatted_min"`
	FormattedMax     string  `json:"formatted_max"`
	FormattedAverage string  `json:"formatted_average"`
}

// Breakdown aggregates matched values sharing one dimension label.
type Breakdown struct {
	Label            string  `json:"label"`
	Count            int     `json:"count"`
	Total            float64 `json:"total"`
	Average          float64 `json:"average"`
	FormattedTotal   string  `json:"formatted_total"`
	FormattedAverage string  `json:"formatted_average"`
}

// FactTableSummary is computed over every match, before truncation.
type FactTableSummary struct {
	Message             string                `json:"message"`
	SearchRange         ValueRange            `json:"search_range"`
	TotalMatches        int                   `json:"total_matches"`
	ExactMatches        int                   `json:"exact_matches"`
	UniqueConcepts      int                   `json:"unique_concepts"`
	WithGeography       int                   `json:"with_geography"`
	WithSegment         int                   `json:"with_segment"`
	WithProduct         int                   `json:"with_product"`
	WithDimensions      int                   `json:"with_dimensions"`
	ValueStats          *ValueStats           `json:"value_stats"`
	BusinessTypes       map[xbrl.Category]int `json:"business_types"`
	PeriodTypes         []string              `json:"period_types"`
	GeographicBreakdown []Breakdown           `json:"geographic_breakdown"`
	SegmentBreakdown    []Breakdown           `json:"segment_breakdown"`
	ClosestMatch        *FactRow              `json:"closest_match"`
}

// FactTableResult is the output of BuildFactTable.
type FactTableResult struct {
	RunID          string           `json:"run_id"`
	Country        source.Country   `json:"country"`
	CompanyID      string           `json:"company_id"`
	Document       source.PeriodRef `json:"document"`
	CurrencySymbol string           `json:"currency_symbol"`
	TargetValue    float64          `json:"target_value"`
	Tolerance      float64          `json:"tolerance"`
	FactsScanned   int              `json:"facts_scanned"`
	Truncated      bool             `json:"truncated"`
	Table          []FactRow        `json:"table"`
	Summary        FactTableSummary `json:"summary"`
}

func (o FactTableOptions) withDefaults() (FactTableOptions, error) {
	def := DefaultFactTableOptions()
	if o.SortBy == "" {
		o.SortBy = def.SortBy
	}
	if o.MaxRows <= 0 {
		o.MaxRows = def.MaxRows
	}
	switch o.SortBy {
	case SortByDeviation, SortByValue, SortByConcept:
	default:
		return o, eris.Wrapf(ErrInvalidConfig, "unknown sort order %q", o.SortBy)
	}
	return o, nil
}

// BuildFactTable finds the facts of one filing whose value lies within
// tolerance of the target, and summarises them.
func (e *Engine) BuildFactTable(ctx context.Context, p FactTableParams) (*FactTableResult, error) {
	if strings.TrimSpace(p.CompanyID) == "" {
		return nil, eris.Wrap(ErrInvalidConfig, "company id is required")
	}
	if p.Tolerance < 0 || math.IsNaN(p.Tolerance) || math.IsNaN(p.TargetValue) {
		return nil, eris.Wrapf(ErrInvalidConfig, "invalid target %v or tolerance %v", p.TargetValue, p.Tolerance)
	}
	opts, err := p.Options.withDefaults()
	if err != nil {
		return nil, err
	}
	src, err := e.lookup(p.Country)
	if err != nil {
		return nil, err
	}

	runID := e.newRunID()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("country", string(src.Country())),
		zap.String("company_id", p.CompanyID),
	)

	ref, err := src.ResolveDocument(ctx, p.CompanyID, p.DocumentID)
	if err != nil {
		return nil, eris.Wrap(configError(err), "analysis: resolve document")
	}
	res, err := src.FetchPeriodFacts(ctx, p.CompanyID, ref)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: fetch facts for %s", ref.ID)
	}

	symbol := src.CurrencySymbol()
	window := xbrl.ValueRange{Min: ptr(p.TargetValue - p.Tolerance), Max: ptr(p.TargetValue + p.Tolerance)}
	criteria := opts.Criteria.Merge(xbrl.Criteria{ValueRange: &window, HasValue: true})
	matched := xbrl.Filter(res.Facts, criteria)

	out := &FactTableResult{
		RunID:          runID,
		Country:        src.Country(),
		CompanyID:      p.CompanyID,
		Document:       ref,
		CurrencySymbol: symbol,
		TargetValue:    p.TargetValue,
		Tolerance:      p.Tolerance,
		FactsScanned:   len(res.Facts),
		Table:          []FactRow{},
	}
	out.Summary.SearchRange = ValueRange{
		Min:          *window.Min,
		Max:          *window.Max,
		FormattedMin: FormatCurrency(symbol, *window.Min),
		FormattedMax: FormatCurrency(symbol, *window.Max),
	}

	if len(matched) == 0 {
		out.Summary.Message = fmt.Sprintf("No facts found within range %s - %s",
			out.Summary.SearchRange.FormattedMin, out.Summary.SearchRange.FormattedMax)
		log.Info("fact table: no matches", zap.String("document_id", ref.ID), zap.Int("facts", len(res.Facts)))
		return out, nil
	}

	rows := make([]FactRow, 0, len(matched))
	for _, f := range matched {
		rows = append(rows, enrichFact(f, p.TargetValue, symbol))
	}
	sortRows(rows, opts.SortBy)
	for i := range rows {
		rows[i].Row = i + 1
	}

	out.Summary = summarize(rows, symbol, out.Summary.SearchRange)
	out.Table = rows
	if len(rows) > opts.MaxRows {
		out.Table = rows[:opts.MaxRows]
		out.Truncated = true
	}

	log.Info("fact table built",
		zap.String("document_id", ref.ID),
		zap.Int("matches", len(rows)),
		zap.Int("exact_matches", out.Summary.ExactMatches),
	)
	return out, nil
}

func enrichFact(f xbrl.Fact, target float64, symbol string) FactRow {
	v := *f.Value
	dev := v - target
	geo, seg, prod := f.Geography(), f.Segment(), f.Product()
	return FactRow{
		Namespace:           f.Namespace,
		Concept:             f.Concept,
		AccountName:         f.AccountName,
		Value:               v,
		FormattedValue:      FormatCurrency(symbol, v),
		DeviationFromTarget: dev,
		FormattedDeviation:  FormatCurrency(symbol, dev),
		DeviationPercent:    formatPercent(percentOf(dev, target)),
		ExactMatch:          math.Abs(dev) < ExactMatchThreshold,
		Period:              displayPeriod(f.Period),
		PeriodType:          f.Period.Type(),
		BusinessType:        xbrl.Classify(f.Concept),
		Geography:           geo,
		Segment:             seg,
		Product:             prod,
		HasGeography:        geo != nil,
		HasSegment:          seg != nil,
		HasProduct:          prod != nil,
		Dimensions:          f.Dimensions,
		ContextRef:          f.ContextRef,
		UnitRef:             f.UnitRef,
		Decimals:            f.Decimals,
		Scale:               f.Scale,
	}
}

// displayPeriod falls back to the business year for DART line items,
// which carry no dates.
func displayPeriod(p xbrl.Period) string {
	return cmp.Or(p.Effective(), p.Year)
}

func sortRows(rows []FactRow, by string) {
	switch by {
	case SortByValue:
		slices.SortStableFunc(rows, func(a, b FactRow) int { return cmp.Compare(b.Value, a.Value) })
	case SortByConcept:
		slices.SortStableFunc(rows, func(a, b FactRow) int { return strings.Compare(a.Concept, b.Concept) })
	default:
		slices.SortStableFunc(rows, func(a, b FactRow) int {
			return cmp.Compare(math.Abs(a.DeviationFromTarget), math.Abs(b.DeviationFromTarget))
		})
	}
}

func summarize(rows []FactRow, symbol string, window ValueRange) FactTableSummary {
	s := FactTableSummary{
		SearchRange:   window,
		TotalMatches:  len(rows),
		BusinessTypes: make(map[xbrl.Category]int),
	}

	concepts := make(map[string]struct{})
	periodTypes := make(map[string]struct{})
	geo := newBreakdowns()
	seg := newBreakdowns()
	stats := ValueStats{Min: rows[0].Value, Max: rows[0].Value}
	var sum float64

	for i := range rows {
		r := &rows[i]
		if r.ExactMatch {
			s.ExactMatches++
		}
		concepts[r.Concept] = struct{}{}
		if _, ok := periodTypes[r.PeriodType]; !ok {
			periodTypes[r.PeriodType] = struct{}{}
			s.PeriodTypes = append(s.PeriodTypes, r.PeriodType)
		}
		s.BusinessTypes[r.BusinessType]++
		if r.HasGeography {
			s.WithGeography++
			geo.add(*r.Geography, r.Value)
		}
		if r.HasSegment {
			s.WithSegment++
			seg.add(*r.Segment, r.Value)
		}
		if r.HasProduct {
			s.WithProduct++
		}
		if len(r.Dimensions) > 0 {
			s.WithDimensions++
		}

		stats.Min = min(stats.Min, r.Value)
		stats.Max = max(stats.Max, r.Value)
		sum += r.Value
		if s.ClosestMatch == nil || math.Abs(r.DeviationFromTarget) < math.Abs(s.ClosestMatch.DeviationFromTarget) {
			s.ClosestMatch = r
		}
	}

	stats.Average = sum / float64(len(rows))
	stats.FormattedMin = FormatCurrency(symbol, stats.Min)
	stats.FormattedMax = FormatCurrency(symbol, stats.Max)
	stats.FormattedAverage = FormatCurrency(symbol, stats.Average)
	s.ValueStats = &stats
	s.UniqueConcepts = len(concepts)
	s.GeographicBreakdown = geo.list(symbol)
	s.SegmentBreakdown = seg.list(symbol)
	closest := *s.ClosestMatch
	s.ClosestMatch = &closest
	s.Message = fmt.Sprintf("Found %d facts within range %s - %s", len(rows), window.FormattedMin, window.FormattedMax)
	return s
}

// breakdowns accumulates per-label totals in first-seen order.
type breakdowns struct {
	order []string
	byKey map[string]*Breakdown
}

func newBreakdowns() *breakdowns {
	return &breakdowns{byKey: make(map[string]*Breakdown)}
}

func (b *breakdowns) add(label string, v float64) {
	bd, ok := b.byKey[label]
	if !ok {
		bd = &Breakdown{Label: label}
		b.byKey[label] = bd
		b.order = append(b.order, label)
	}
	bd.Count++
	bd.Total += v
}

// list returns the breakdowns by descending total.
func (b *breakdowns) list(symbol string) []Breakdown {
	out := make([]Breakdown, 0, len(b.order))
	for _, label := range b.order {
		bd := *b.byKey[label]
		bd.Average = bd.Total / float64(bd.Count)
		bd.FormattedTotal = FormatCurrency(symbol, bd.Total)
		bd.FormattedAverage = FormatCurrency(symbol, bd.Average)
		out = append(out, bd)
	}
	slices.SortStableFunc(out, func(a, b Breakdown) int { return cmp.Compare(b.Total, a.Total) })
	return out
}

func ptr[T any](v T) *T { return &v }
