package source

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/xbrl"
	"github.com/sells-group/disclosure-cli/pkg/dart"
)

// DARTOptions configures the Korean source.
type DARTOptions struct {
	// ListYears bounds how far back filing listings search.
	ListYears int
	// Now anchors "last business year"; tests pin it.
	Now func() time.Time
}

// DART is the Korean filing source. Periods are business years, and a
// document id is "businessYear:reportCode".
type DART struct {
	client dart.Client
	opts   DARTOptions
}

// NewDART creates the Korean source.
func NewDART(client dart.Client, opts DARTOptions) *DART {
	if opts.ListYears <= 0 {
		opts.ListYears = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DART{client: client, opts: opts}
}

// Country implements Source.
func (s *DART) Country() Country { return KR }

// CurrencySymbol implements Source.
func (s *DART) CurrencySymbol() string { return "₩" }

// ScanLimit implements Source.
func (s *DART) ScanLimit(periods int) int { return periods }

// ListRecentPeriods implements Source: the limit business years ending
// last year, annual reports only.
func (s *DART) ListRecentPeriods(_ context.Context, _ string, limit int) ([]PeriodRef, error) {
	last := s.opts.Now().Year() - 1
	refs := make([]PeriodRef, 0, max(limit, 0))
	for i := range max(limit, 0) {
		refs = append(refs, yearRef(strconv.Itoa(last-i), dart.ReportAnnual))
	}
	return refs, nil
}

func yearRef(year, reportCode string) PeriodRef {
	return PeriodRef{
		ID:           year + ":" + reportCode,
		Period:       year,
		BusinessYear: year,
		ReportCode:   reportCode,
	}
}

// FetchPeriodFacts implements Source.
func (s *DART) FetchPeriodFacts(ctx context.Context, companyID string, ref PeriodRef) (*xbrl.ParseResult, error) {
	body, err := s.client.FinancialStatements(ctx, companyID, ref.BusinessYear, ref.ReportCode)
	if err != nil {
		return nil, err
	}
	return xbrl.ParseStructured(bytes.NewReader(body))
}

var businessYear = regexp.MustCompile(`^\d{4}$`)

// ResolveDocument implements Source. DART has no document-level fact
// endpoint, so the id must name the business year and report code.
func (s *DART) ResolveDocument(_ context.Context, _ string, documentID string) (PeriodRef, error) {
	year, code, ok := strings.Cut(strings.TrimSpace(documentID), ":")
	if !ok || !businessYear.MatchString(year) || code == "" {
		return PeriodRef{}, eris.Wrapf(ErrInvalidInput,
			"KR document id must be \"businessYear:reportCode\" (e.g. 2023:%s), got %q", dart.ReportAnnual, documentID)
	}
	return yearRef(year, code), nil
}

// periodicReport matches the report names of periodic filings, e.g.
// "사업보고서 (2023.12)" or "[기재정정]반기보고서 (2024.06)".
var periodicReport = regexp.MustCompile(`(사업|반기|분기)보고서\s*\((\d{4})\.(\d{2})\)`)

// reportRef derives the business year and report code from a periodic
// report name.
func reportRef(name string) (PeriodRef, bool) {
	m := periodicReport.FindStringSubmatch(name)
	if m == nil {
		return PeriodRef{}, false
	}
	code := dart.ReportAnnual
	switch m[1] {
	case "반기":
		code = dart.ReportHalf
	case "분기":
		code = dart.ReportQuarter1
		if m[3] >= "07" {
			code = dart.ReportQuarter3
		}
	}
	ref := yearRef(m[2], code)
	ref.Period = m[2] + "-" + m[3]
	return ref, true
}

// ListFilings implements Source using the periodic disclosure list.
// Non-periodic filings are omitted since they carry no statements.
func (s *DART) ListFilings(ctx context.Context, companyID string, limit int) ([]PeriodRef, error) {
	now := s.opts.Now()
	resp, err := s.client.ListDisclosures(ctx, companyID, dart.ListOptions{
		BeginDate:      now.AddDate(-s.opts.ListYears, 0, 0).Format("20060102"),
		EndDate:        now.Format("20060102"),
		DisclosureType: "A",
		PageCount:      100,
	})
	if err != nil {
		return nil, eris.Wrap(err, "dart: list filings")
	}

	filer := ""
	if co, err := s.client.Company(ctx, companyID); err != nil {
		zap.L().Debug("dart: company lookup failed", zap.String("company_id", companyID), zap.Error(err))
	} else {
		filer = co.CorpName
	}

	var refs []PeriodRef
	for _, d := range resp.List {
		ref, ok := reportRef(d.ReportName)
		if !ok {
			continue
		}
		ref.SubmitDate = formatCompactDate(d.ReceiptDate)
		ref.Title = d.ReportName
		ref.ReceiptNo = d.ReceiptNo
		ref.Filer = filer
		if ref.Filer == "" {
			ref.Filer = d.CorpName
		}
		refs = append(refs, ref)
		if limit > 0 && len(refs) >= limit {
			break
		}
	}
	return refs, nil
}

// formatCompactDate turns YYYYMMDD into YYYY-MM-DD.
func formatCompactDate(s string) string {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return s
	}
	return t.Format(time.DateOnly)
}
