package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func revenue(v float64, geo string) xbrl.Fact {
	if geo == "" {
		return numeric("Revenue", v)
	}
	return numeric("Revenue", v, geoDim("ifrs-full:"+geo+"Member"))
}

func seriesSource() *fakeSource {
	return &fakeSource{
		country: source.JP,
		symbol:  "¥",
		refs: []source.PeriodRef{
			{ID: "D2024", Period: "2024-03-31"},
			{ID: "DNOMATCH", Period: "2023-12-31"},
			{ID: "D2023", Period: "2023-03-31"},
			{ID: "DFAIL", Period: "2022-12-31"},
			{ID: "D2022", Period: "2022-03-31"},
			{ID: "D2021", Period: "2021-03-31"},
		},
		facts: map[string][]xbrl.Fact{
			"D2024":    {revenue(600, "Japan"), revenue(550, "Europe"), numeric("OperatingIncome", 90)},
			"DNOMATCH": {numeric("OperatingIncome", 80)},
			"D2023":    {revenue(500, "Japan"), revenue(500, "Europe"), revenue(0, "Asia")},
			"D2022":    {revenue(400, "Japan"), revenue(0, "Europe")},
			"D2021":    {revenue(100, "")},
		},
		fail: map[string]error{"DFAIL": errors.New("edinet: http 503")},
	}
}

func TestTimeSeries_CollectsAndSkips(t *testing.T) {
	src := seriesSource()
	pacer := &countingPacer{}
	e := NewEngine(source.NewSet(src), WithPacer(pacer), WithRunID(func() string { return "run-ts" }))

	opts := DefaultTimeSeriesOptions()
	opts.Periods = 3
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)

	assert.Equal(t, "run-ts", res.RunID)
	require.Len(t, res.Periods, 3)
	assert.Equal(t, "2024-03-31", res.Periods[0].Period)
	assert.Equal(t, "2023-03-31", res.Periods[1].Period)
	assert.Equal(t, "2022-03-31", res.Periods[2].Period)
	assert.Equal(t, 1150.0, res.Periods[0].Total)

	// Stops once enough periods have data; failures and empty periods
	// are skipped, with pacing between every fetch.
	assert.Equal(t, []string{"D2024", "DNOMATCH", "D2023", "DFAIL", "D2022"}, src.fetched)
	assert.Equal(t, 4, pacer.waits)
	assert.Equal(t, 3, res.Summary.PeriodsFound)
	assert.Empty(t, res.Summary.Note)
}

func TestTimeSeries_Table(t *testing.T) {
	e := newTestEngine(seriesSource())

	opts := DefaultTimeSeriesOptions()
	opts.Periods = 3
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)

	require.Len(t, res.Table, 7)
	for i := 1; i < len(res.Table); i++ {
		prev, cur := res.Table[i-1], res.Table[i]
		assert.GreaterOrEqual(t, prev.Period, cur.Period)
		if prev.Period == cur.Period {
			assert.GreaterOrEqual(t, prev.Value, cur.Value)
		}
	}
	assert.Equal(t, "Japan", res.Table[0].Geography)
	assert.Equal(t, TotalLabel, res.Table[0].Segment)

	assert.Equal(t, []string{"Japan", "Europe", "Asia"}, res.Summary.UniqueGeographies)
	assert.Equal(t, []string{TotalLabel}, res.Summary.UniqueSegments)
	assert.Equal(t, DateRange{From: "2022-03-31", To: "2024-03-31"}, res.Summary.DateRange)
}

func TestTimeSeries_GrowthRates(t *testing.T) {
	e := newTestEngine(seriesSource())

	opts := DefaultTimeSeriesOptions()
	opts.Periods = 3
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	require.NotNil(t, res.Growth)

	// 2024 vs 2023: Japan +20%, Europe +10%; Asia has a zero prior total.
	// 2023 vs 2022: Japan +25%; Europe has a zero prior total.
	rates := res.Growth.Rates
	require.Len(t, rates, 3)
	for _, r := range rates {
		assert.False(t, math.IsInf(r.GrowthRate, 0) || math.IsNaN(r.GrowthRate))
		assert.NotEqual(t, 0.0, r.PriorValue)
	}
	assert.Equal(t, "Japan", rates[0].Geography)
	assert.Equal(t, "2022-03-31", rates[0].FromPeriod)
	assert.InDelta(t, 25.0, rates[0].GrowthRate, 1e-9)
	assert.Equal(t, "+25.00%", rates[0].FormattedRate)
	assert.InDelta(t, 20.0, rates[1].GrowthRate, 1e-9)
	assert.Equal(t, "Europe", rates[2].Geography)
	assert.InDelta(t, 10.0, rates[2].GrowthRate, 1e-9)

	s := res.Growth.Summary
	assert.Equal(t, 3, s.Count)
	require.NotNil(t, s.AverageGrowthRate)
	assert.InDelta(t, 55.0/3, *s.AverageGrowthRate, 1e-9)
	assert.InDelta(t, 25.0, s.Highest.GrowthRate, 1e-9)
	assert.InDelta(t, 10.0, s.Lowest.GrowthRate, 1e-9)
}

func TestTimeSeries_GrowthDisabledOrSinglePeriod(t *testing.T) {
	e := newTestEngine(seriesSource())

	opts := DefaultTimeSeriesOptions()
	opts.ShowGrowthRates = false
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	assert.Nil(t, res.Growth)

	opts = DefaultTimeSeriesOptions()
	opts.Periods = 1
	res, err = e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	assert.Nil(t, res.Growth)
	assert.Equal(t, TrendInsufficientData, res.Trend.Direction)
	assert.Nil(t, res.Trend.PercentChange)
}

func TestTimeSeries_Mix(t *testing.T) {
	e := newTestEngine(seriesSource())

	opts := DefaultTimeSeriesOptions()
	opts.Periods = 3
	opts.IncludeSegments = false
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	require.Len(t, res.Mix, 3)

	latest := res.Mix[0]
	assert.Equal(t, 1150.0, latest.Total)
	assert.Nil(t, latest.Segments)
	require.Len(t, latest.Geography, 2)
	assert.Equal(t, MixEntry{Label: "Japan", Value: 600, FormattedValue: "¥600", Percentage: "52.17%"}, latest.Geography[0])
	assert.Equal(t, "47.83%", latest.Geography[1].Percentage)

	opts.IncludeGeography = false
	res, err = e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	assert.Nil(t, res.Mix)
}

func TestTimeSeries_MixZeroTotal(t *testing.T) {
	src := &fakeSource{
		country: source.KR,
		symbol:  "₩",
		refs:    []source.PeriodRef{{ID: "2023:11011", Period: "2023"}},
		facts:   map[string][]xbrl.Fact{"2023:11011": {revenue(0, "")}},
	}
	e := newTestEngine(src)

	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "KR", CompanyID: "00126380", Options: DefaultTimeSeriesOptions()})
	require.NoError(t, err)
	require.Len(t, res.Mix, 1)
	assert.Equal(t, "N/A", res.Mix[0].Geography[0].Percentage)
	assert.Equal(t, "found 1 of 4 requested periods", res.Summary.Note)
}

func trendSource(earliest, latest float64) *fakeSource {
	return &fakeSource{
		country: source.KR,
		symbol:  "₩",
		refs: []source.PeriodRef{
			{ID: "2023:11011", Period: "2023"},
			{ID: "2022:11011", Period: "2022"},
		},
		facts: map[string][]xbrl.Fact{
			"2023:11011": {revenue(latest, "")},
			"2022:11011": {revenue(earliest, "")},
		},
	}
}

func TestTimeSeries_TrendBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		earliest float64
		latest   float64
		want     string
	}{
		{"exactly +5%", 100, 105, TrendStable},
		{"exactly -5%", 100, 95, TrendStable},
		{"just above +5%", 1_000_000, 1_050_001, TrendIncreasing},
		{"just below -5%", 1_000_000, 949_999, TrendDecreasing},
		{"flat", 500, 500, TrendStable},
		{"from zero up", 0, 10, TrendIncreasing},
		{"from zero down", 0, -10, TrendDecreasing},
		{"zero to zero", 0, 0, TrendStable},
		{"loss narrowing", -100, -50, TrendIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(trendSource(tt.earliest, tt.latest))
			opts := DefaultTimeSeriesOptions()
			opts.Periods = 2
			res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "KR", CompanyID: "00126380", Options: opts})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Trend.Direction)
			assert.Equal(t, "2022", res.Trend.EarliestPeriod)
			assert.Equal(t, "2023", res.Trend.LatestPeriod)
			if tt.earliest == 0 {
				assert.Nil(t, res.Trend.PercentChange)
			}
		})
	}
}

func TestTimeSeries_ValueBounds(t *testing.T) {
	e := newTestEngine(seriesSource())

	opts := DefaultTimeSeriesOptions()
	opts.Periods = 2
	opts.MinValue = ptr(450.0)
	opts.MaxValue = ptr(1000.0)
	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.NoError(t, err)
	for _, f := range res.Table {
		assert.GreaterOrEqual(t, f.Value, 450.0)
		assert.LessOrEqual(t, f.Value, 1000.0)
	}
	assert.Len(t, res.Table, 4)

	opts.MinValue = ptr(2000.0)
	_, err = e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestTimeSeries_NoPeriodData(t *testing.T) {
	src := seriesSource()
	e := newTestEngine(src)

	opts := DefaultTimeSeriesOptions()
	opts.Concept = "Goodwill"
	_, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "Goodwill")
	assert.Contains(t, err.Error(), "E02144")
	// Four periods requested: eight candidates examined, six exist.
	assert.Len(t, src.fetched, 6)
}

func TestTimeSeries_AuthFailureSkipsPeriod(t *testing.T) {
	src := seriesSource()
	src.fail["D2024"] = &resilience.AuthError{Service: "edinet", StatusCode: 401}
	e := newTestEngine(src)

	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: DefaultTimeSeriesOptions()})
	require.NoError(t, err)
	assert.Len(t, src.fetched, 6)
	assert.Equal(t, 3, res.Summary.PeriodsFound)
	assert.Equal(t, "2023-03-31", res.Periods[0].Period)
}

func TestTimeSeries_AuthFailureEverywhereIsNoData(t *testing.T) {
	src := seriesSource()
	for _, ref := range src.refs {
		src.fail[ref.ID] = &resilience.AuthError{Service: "edinet", StatusCode: 401}
	}
	e := newTestEngine(src)

	_, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: DefaultTimeSeriesOptions()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "Revenue")
	assert.Contains(t, err.Error(), "E02144")
	assert.Len(t, src.fetched, 6)
}

func TestTimeSeries_InvalidParams(t *testing.T) {
	e := newTestEngine(seriesSource())
	ctx := context.Background()

	_, err := e.TimeSeriesAnalysis(ctx, TimeSeriesParams{Country: "JP"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	opts := DefaultTimeSeriesOptions()
	opts.Periods = -1
	_, err = e.TimeSeriesAnalysis(ctx, TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: opts})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	src := seriesSource()
	src.listErr = errors.New("edinet: scan filings: context canceled")
	_, err = newTestEngine(src).TimeSeriesAnalysis(ctx, TimeSeriesParams{Country: "JP", CompanyID: "E02144", Options: DefaultTimeSeriesOptions()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list periods")
}

func TestTimeSeries_ZeroOptionsDisableSections(t *testing.T) {
	src := seriesSource()
	e := newTestEngine(src)

	res, err := e.TimeSeriesAnalysis(context.Background(), TimeSeriesParams{Country: "JP", CompanyID: "E02144"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue", res.Summary.Concept)
	assert.Equal(t, 4, res.Summary.PeriodsRequested)
	assert.Equal(t, 4, res.Summary.PeriodsFound)
	assert.Nil(t, res.Growth)
	assert.Nil(t, res.Mix)
}
