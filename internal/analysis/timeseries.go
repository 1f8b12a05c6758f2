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

	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

// TotalLabel stands in for a missing geography or segment.
const TotalLabel = "Total"

// Trend directions.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// trendThreshold is the percent change beyond which a trend is not stable.
const trendThreshold = 5.0

// TimeSeriesOptions tunes TimeSeriesAnalysis. Start from
// DefaultTimeSeriesOptions; the booleans default to true there, while a
// zero-valued TimeSeriesOptions leaves them false and skips those sections.
type TimeSeriesOptions struct {
	// Concept is a case-insensitive substring of the tracked concept.
	Concept          string   `json:"concept" yaml:"concept"`
	Periods          int      `json:"periods" yaml:"periods"`
	IncludeGeography bool     `json:"include_geography" yaml:"include_geography"`
	IncludeSegments  bool     `json:"include_segments" yaml:"include_segments"`
	ShowGrowthRates  bool     `json:"show_growth_rates" yaml:"show_growth_rates"`
	MinValue         *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue         *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
}

// DefaultTimeSeriesOptions returns the documented defaults.
func DefaultTimeSeriesOptions() TimeSeriesOptions {
	return TimeSeriesOptions{
		Concept:          "Revenue",
		Periods:          4,
		IncludeGeography: true,
		IncludeSegments:  true,
		ShowGrowthRates:  true,
	}
}

// TimeSeriesParams are the inputs of TimeSeriesAnalysis.
type TimeSeriesParams struct {
	Country   string            `json:"country"`
	CompanyID string            `json:"company_id"`
	Options   TimeSeriesOptions `json:"options"`
}

// SeriesFact is one fact of one period, labelled for aggregation.
type SeriesFact struct {
	Period         string        `json:"period"`
	DocumentID     string        `json:"document_id"`
	Concept        string        `json:"concept"`
	AccountName    string        `json:"account_name,omitempty"`
	Value          float64       `json:"value"`
	FormattedValue string        `json:"formatted_value"`
	Geography      string        `json:"geography"`
	Segment        string        `json:"segment"`
	BusinessType   xbrl.Category `json:"business_type"`
	PeriodType     string        `json:"period_type"`
	FactPeriod     string        `json:"fact_period,omitempty"`
}

// PeriodRecord is one filing period's matching facts.
type PeriodRecord struct {
	Period         string       `json:"period"`
	DocumentID     string       `json:"document_id"`
	SubmitDate     string       `json:"submit_date,omitempty"`
	FactCount      int          `json:"fact_count"`
	Total          float64      `json:"total"`
	FormattedTotal string       `json:"formatted_total"`
	Facts          []SeriesFact `json:"-"`
}

// GrowthRate compares one geography across adjacent periods.
type GrowthRate struct {
	Geography      string  `json:"geography"`
	FromPeriod     string  `json:"from_period"`
	ToPeriod       string  `json:"to_period"`
	PriorValue     float64 `json:"prior_value"`
	CurrentValue   float64 `json:"current_value"`
	GrowthRate     float64 `json:"growth_rate"`
	FormattedRate  string  `json:"formatted_rate"`
	FormattedPrior string  `json:"formatted_prior"`
	FormattedValue string  `json:"formatted_value"`
}

// GrowthSummary condenses the growth rates.
type GrowthSummary struct {
	Count             int         `json:"count"`
	AverageGrowthRate *float64    `json:"average_growth_rate"`
	Highest           *GrowthRate `json:"highest"`
	Lowest            *GrowthRate `json:"lowest"`
}

// GrowthAnalysis holds rates by descending magnitude.
type GrowthAnalysis struct {
	Rates   []GrowthRate  `json:"rates"`
	Summary GrowthSummary `json:"summary"`
}

// MixEntry is one label's share of a period total.
type MixEntry struct {
	Label          string  `json:"label"`
	Value          float64 `json:"value"`
	FormattedValue string  `json:"formatted_value"`
	Percentage     string  `json:"percentage"`
}

// MixPeriod is the composition of one period.
type MixPeriod struct {
	Period         string     `json:"period"`
	Total          float64    `json:"total"`
	FormattedTotal string     `json:"formatted_total"`
	Geography      []MixEntry `json:"geography,omitempty"`
	Segments       []MixEntry `json:"segments,omitempty"`
}

// Trend compares the earliest and latest period totals.
type Trend struct {
	Direction       string   `json:"direction"`
	EarliestPeriod  string   `json:"earliest_period,omitempty"`
	LatestPeriod    string   `json:"latest_period,omitempty"`
	EarliestTotal   float64  `json:"earliest_total"`
	LatestTotal     float64  `json:"latest_total"`
	// PercentChange is relative to |EarliestTotal|, so a shrinking loss is
	// positive. Nil when EarliestTotal is zero.
	PercentChange   *float64 `json:"percent_change"`
	FormattedChange string   `json:"formatted_change"`
}

// DateRange spans the analysed periods.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TimeSeriesSummary describes the collected table.
type TimeSeriesSummary struct {
	Concept           string    `json:"concept"`
	PeriodsRequested  int       `json:"periods_requested"`
	PeriodsFound      int       `json:"periods_found"`
	TotalFacts        int       `json:"total_facts"`
	UniqueGeographies []string  `json:"unique_geographies"`
	UniqueSegments    []string  `json:"unique_segments"`
	DateRange         DateRange `json:"date_range"`
	Note              string    `json:"note,omitempty"`
}

// TimeSeriesResult is the output of TimeSeriesAnalysis.
type TimeSeriesResult struct {
	RunID          string            `json:"run_id"`
	Country        source.Country    `json:"country"`
	CompanyID      string            `json:"company_id"`
	CurrencySymbol string            `json:"currency_symbol"`
	Periods        []PeriodRecord    `json:"periods"`
	Table          []SeriesFact      `json:"table"`
	Growth         *GrowthAnalysis   `json:"growth_analysis"`
	Mix            []MixPeriod       `json:"mix_analysis"`
	Trend          Trend             `json:"trend"`
	Summary        TimeSeriesSummary `json:"summary"`
}

func (o TimeSeriesOptions) withDefaults() (TimeSeriesOptions, error) {
	def := DefaultTimeSeriesOptions()
	if strings.TrimSpace(o.Concept) == "" {
		o.Concept = def.Concept
	}
	if o.Periods == 0 {
		o.Periods = def.Periods
	}
	if o.Periods < 0 {
		return o, eris.Wrapf(ErrInvalidConfig, "periods must be positive, got %d", o.Periods)
	}
	if o.MinValue != nil && o.MaxValue != nil && *o.MinValue > *o.MaxValue {
		return o, eris.Wrapf(ErrInvalidConfig, "min value %v exceeds max value %v", *o.MinValue, *o.MaxValue)
	}
	return o, nil
}

func (o TimeSeriesOptions) criteria() xbrl.Criteria {
	c := xbrl.Criteria{Concept: o.Concept, HasValue: true}
	if o.MinValue != nil || o.MaxValue != nil {
		c.ValueRange = &xbrl.ValueRange{Min: o.MinValue, Max: o.MaxValue}
	}
	return c
}

var errNoMatches = eris.New("no matching facts")

// TimeSeriesAnalysis tracks a concept across the company's recent periods.
// Periods are fetched one at a time with the engine's pacing; a period
// that fails or has no matches is skipped.
func (e *Engine) TimeSeriesAnalysis(ctx context.Context, p TimeSeriesParams) (*TimeSeriesResult, error) {
	if strings.TrimSpace(p.CompanyID) == "" {
		return nil, eris.Wrap(ErrInvalidConfig, "company id is required")
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
		zap.String("concept", opts.Concept),
	)

	refs, err := src.ListRecentPeriods(ctx, p.CompanyID, src.ScanLimit(opts.Periods))
	if err != nil {
		return nil, eris.Wrap(configError(err), "analysis: list periods")
	}

	symbol := src.CurrencySymbol()
	criteria := opts.criteria()
	var records []PeriodRecord

	err = resilience.Sequence(ctx, e.pacer, refs,
		func(ctx context.Context, ref source.PeriodRef) (bool, error) {
			res, err := src.FetchPeriodFacts(ctx, p.CompanyID, ref)
			if err != nil {
				return false, err
			}
			matched := xbrl.Filter(res.Facts, criteria)
			if len(matched) == 0 {
				return false, errNoMatches
			}
			records = append(records, periodRecord(ref, matched, symbol))
			return len(records) >= opts.Periods, nil
		},
		func(ref source.PeriodRef, err error) {
			log.Warn("time series: skipping period",
				zap.String("document_id", ref.ID),
				zap.String("period", ref.Period),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: collect periods")
	}
	if len(records) == 0 {
		return nil, eris.Wrapf(ErrNoData, "no %q facts found for company %s", opts.Concept, p.CompanyID)
	}

	slices.SortStableFunc(records, func(a, b PeriodRecord) int { return cmp.Compare(b.Period, a.Period) })

	out := &TimeSeriesResult{
		RunID:          runID,
		Country:        src.Country(),
		CompanyID:      p.CompanyID,
		CurrencySymbol: symbol,
		Periods:        records,
		Table:          flatten(records),
		Trend:          trend(records),
	}
	if opts.ShowGrowthRates && len(records) >= 2 {
		out.Growth = growthAnalysis(records, symbol)
	}
	if opts.IncludeGeography || opts.IncludeSegments {
		out.Mix = mixAnalysis(records, opts, symbol)
	}
	out.Summary = seriesSummary(records, out.Table, opts)

	log.Info("time series built",
		zap.Int("periods", len(records)),
		zap.Int("facts", len(out.Table)),
		zap.String("trend", out.Trend.Direction),
	)
	return out, nil
}

func periodRecord(ref source.PeriodRef, facts []xbrl.Fact, symbol string) PeriodRecord {
	period := cmp.Or(ref.Period, ref.SubmitDate, ref.ID)
	rec := PeriodRecord{
		Period:     period,
		DocumentID: ref.ID,
		SubmitDate: ref.SubmitDate,
		FactCount:  len(facts),
		Facts:      make([]SeriesFact, 0, len(facts)),
	}
	for _, f := range facts {
		v := *f.Value
		rec.Total += v
		rec.Facts = append(rec.Facts, SeriesFact{
			Period:         period,
			DocumentID:     ref.ID,
			Concept:        f.Concept,
			AccountName:    f.AccountName,
			Value:          v,
			FormattedValue: FormatCurrency(symbol, v),
			Geography:      labelOrTotal(f.Geography()),
			Segment:        labelOrTotal(f.Segment()),
			BusinessType:   xbrl.Classify(f.Concept),
			PeriodType:     f.Period.Type(),
			FactPeriod:     displayPeriod(f.Period),
		})
	}
	rec.FormattedTotal = FormatCurrency(symbol, rec.Total)
	return rec
}

func labelOrTotal(s *string) string {
	if s == nil {
		return TotalLabel
	}
	return *s
}

// flatten joins every period's facts, newest period first and larger
// values first within a period.
func flatten(records []PeriodRecord) []SeriesFact {
	var table []SeriesFact
	for _, r := range records {
		table = append(table, r.Facts...)
	}
	slices.SortStableFunc(table, func(a, b SeriesFact) int {
		if c := cmp.Compare(b.Period, a.Period); c != 0 {
			return c
		}
		return cmp.Compare(b.Value, a.Value)
	})
	return table
}

// labelTotals sums values per label, keeping first-seen label order.
func labelTotals(facts []SeriesFact, label func(SeriesFact) string) ([]string, map[string]float64) {
	var order []string
	totals := make(map[string]float64)
	for _, f := range facts {
		l := label(f)
		if _, ok := totals[l]; !ok {
			order = append(order, l)
		}
		totals[l] += f.Value
	}
	return order, totals
}

func geographyLabel(f SeriesFact) string { return f.Geography }
func segmentLabel(f SeriesFact) string   { return f.Segment }

// growthAnalysis compares each period with the next older one, per
// geography. Geographies with a zero prior total are skipped.
func growthAnalysis(records []PeriodRecord, symbol string) *GrowthAnalysis {
	ga := &GrowthAnalysis{Rates: []GrowthRate{}}
	for i := 0; i+1 < len(records); i++ {
		cur, prior := records[i], records[i+1]
		curOrder, curTotals := labelTotals(cur.Facts, geographyLabel)
		priorOrder, priorTotals := labelTotals(prior.Facts, geographyLabel)

		seen := make(map[string]bool)
		for _, geo := range slices.Concat(curOrder, priorOrder) {
			if seen[geo] {
				continue
			}
			seen[geo] = true

			pv, cv := priorTotals[geo], curTotals[geo]
			if pv == 0 {
				continue
			}
			rate := (cv - pv) / pv * 100
			ga.Rates = append(ga.Rates, GrowthRate{
				Geography:      geo,
				FromPeriod:     prior.Period,
				ToPeriod:       cur.Period,
				PriorValue:     pv,
				CurrentValue:   cv,
				GrowthRate:     rate,
				FormattedRate:  formatSignedPercent(rate),
				FormattedPrior: FormatCurrency(symbol, pv),
				FormattedValue: FormatCurrency(symbol, cv),
			})
		}
	}

	slices.SortStableFunc(ga.Rates, func(a, b GrowthRate) int {
		return cmp.Compare(math.Abs(b.GrowthRate), math.Abs(a.GrowthRate))
	})

	ga.Summary.Count = len(ga.Rates)
	if len(ga.Rates) == 0 {
		return ga
	}
	var sum float64
	hi, lo := ga.Rates[0], ga.Rates[0]
	for _, r := range ga.Rates {
		sum += r.GrowthRate
		if r.GrowthRate > hi.GrowthRate {
			hi = r
		}
		if r.GrowthRate < lo.GrowthRate {
			lo = r
		}
	}
	avg := sum / float64(len(ga.Rates))
	ga.Summary.AverageGrowthRate = &avg
	ga.Summary.Highest = &hi
	ga.Summary.Lowest = &lo
	return ga
}

func mixAnalysis(records []PeriodRecord, opts TimeSeriesOptions, symbol string) []MixPeriod {
	mix := make([]MixPeriod, 0, len(records))
	for _, r := range records {
		mp := MixPeriod{
			Period:         r.Period,
			Total:          r.Total,
			FormattedTotal: FormatCurrency(symbol, r.Total),
		}
		if opts.IncludeGeography {
			mp.Geography = mixEntries(r, geographyLabel, symbol)
		}
		if opts.IncludeSegments {
			mp.Segments = mixEntries(r, segmentLabel, symbol)
		}
		mix = append(mix, mp)
	}
	return mix
}

func mixEntries(r PeriodRecord, label func(SeriesFact) string, symbol string) []MixEntry {
	order, totals := labelTotals(r.Facts, label)
	entries := make([]MixEntry, 0, len(order))
	for _, l := range order {
		v := totals[l]
		entries = append(entries, MixEntry{
			Label:          l,
			Value:          v,
			FormattedValue: FormatCurrency(symbol, v),
			Percentage:     formatPercent(percentOf(v, r.Total)),
		})
	}
	slices.SortStableFunc(entries, func(a, b MixEntry) int { return cmp.Compare(b.Value, a.Value) })
	return entries
}

// trend compares the oldest and newest period totals. records are sorted
// newest first.
func trend(records []PeriodRecord) Trend {
	if len(records) < 2 {
		t := Trend{Direction: TrendInsufficientData, FormattedChange: "N/A"}
		if len(records) == 1 {
			t.LatestPeriod = records[0].Period
			t.LatestTotal = records[0].Total
		}
		return t
	}

	latest, earliest := records[0], records[len(records)-1]
	t := Trend{
		EarliestPeriod: earliest.Period,
		LatestPeriod:   latest.Period,
		EarliestTotal:  earliest.Total,
		LatestTotal:    latest.Total,
	}

	if earliest.Total == 0 {
		switch {
		case latest.Total > 0:
			t.Direction = TrendIncreasing
		case latest.Total < 0:
			t.Direction = TrendDecreasing
		default:
			t.Direction = TrendStable
		}
		t.FormattedChange = "N/A"
		return t
	}

	change := (latest.Total - earliest.Total) * 100 / math.Abs(earliest.Total)
	t.PercentChange = &change
	t.FormattedChange = formatSignedPercent(change)
	switch {
	case change > trendThreshold:
		t.Direction = TrendIncreasing
	case change < -trendThreshold:
		t.Direction = TrendDecreasing
	default:
		t.Direction = TrendStable
	}
	return t
}

func seriesSummary(records []PeriodRecord, table []SeriesFact, opts TimeSeriesOptions) TimeSeriesSummary {
	s := TimeSeriesSummary{
		Concept:          opts.Concept,
		PeriodsRequested: opts.Periods,
		PeriodsFound:     len(records),
		TotalFacts:       len(table),
		DateRange: DateRange{
			From: records[len(records)-1].Period,
			To:   records[0].Period,
		},
	}
	s.UniqueGeographies, _ = labelTotals(table, geographyLabel)
	s.UniqueSegments, _ = labelTotals(table, segmentLabel)
	if len(records) < opts.Periods {
		s.Note = fmt.Sprintf("found %d of %d requested periods", len(records), opts.Periods)
	}
	return s
}
