package source

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
	"github.com/sells-group/disclosure-cli/pkg/edinet"
)

// DefaultDocTypes are the EDINET form codes carrying financial statements:
// annual, amended annual, quarterly, amended quarterly, semi-annual and
// amended semi-annual reports.
var DefaultDocTypes = []string{"120", "130", "140", "150", "160", "170"}

// EDINETOptions configures the Japanese source.
type EDINETOptions struct {
	// ScanDays bounds how many days back the filing scan goes.
	ScanDays int
	// DocTypes restricts filings to these docTypeCodes.
	DocTypes []string
	// DatePacer spaces the per-day document list requests.
	DatePacer resilience.Pacer
	// Now returns the scan start; tests pin it.
	Now func() time.Time
}

// EDINET is the Japanese filing source. EDINET has no per-company index,
// so recent filings are found by scanning the daily document lists.
type EDINET struct {
	client edinet.Client
	opts   EDINETOptions
}

// NewEDINET creates the Japanese source.
func NewEDINET(client edinet.Client, opts EDINETOptions) *EDINET {
	if opts.ScanDays <= 0 {
		opts.ScanDays = 400
	}
	if len(opts.DocTypes) == 0 {
		opts.DocTypes = DefaultDocTypes
	}
	if opts.DatePacer == nil {
		opts.DatePacer = resilience.NoPacer{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EDINET{client: client, opts: opts}
}

// Country implements Source.
func (s *EDINET) Country() Country { return JP }

// CurrencySymbol implements Source.
func (s *EDINET) CurrencySymbol() string { return "¥" }

// ScanLimit implements Source. Some filings carry no matching facts, so
// twice as many are examined.
func (s *EDINET) ScanLimit(periods int) int { return 2 * periods }

// ListRecentPeriods implements Source.
func (s *EDINET) ListRecentPeriods(ctx context.Context, companyID string, limit int) ([]PeriodRef, error) {
	if limit <= 0 {
		return nil, nil
	}
	log := zap.L().With(zap.String("country", string(JP)), zap.String("company_id", companyID))

	start := s.opts.Now()
	days := make([]time.Time, s.opts.ScanDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, -i)
	}

	var refs []PeriodRef
	err := resilience.Sequence(ctx, s.opts.DatePacer, days,
		func(ctx context.Context, day time.Time) (bool, error) {
			docs, err := s.client.ListDocuments(ctx, day)
			if err != nil {
				return false, err
			}
			for _, d := range s.matching(docs, companyID) {
				refs = append(refs, documentRef(d))
				if len(refs) >= limit {
					return true, nil
				}
			}
			return false, nil
		},
		func(day time.Time, err error) {
			log.Warn("edinet: skipping date", zap.String("date", day.Format(time.DateOnly)), zap.Error(err))
		},
	)
	if err != nil {
		return refs, eris.Wrap(err, "edinet: scan filings")
	}

	log.Debug("edinet: scan complete", zap.Int("filings", len(refs)))
	return refs, nil
}

// matching returns the company's financial filings from one day's list,
// newest submission first.
func (s *EDINET) matching(docs []edinet.Document, companyID string) []edinet.Document {
	var out []edinet.Document
	for _, d := range docs {
		if !d.MatchesCompany(companyID) || !d.HasXBRL() || d.Withdrawn() {
			continue
		}
		if !slices.Contains(s.opts.DocTypes, d.DocTypeCode) {
			continue
		}
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b edinet.Document) int {
		return cmp.Compare(b.SubmitDateTime, a.SubmitDateTime)
	})
	return out
}

func documentRef(d edinet.Document) PeriodRef {
	return PeriodRef{
		ID:         d.DocID,
		Period:     d.PeriodEnd,
		SubmitDate: d.SubmitDate(),
		DocType:    d.DocTypeCode,
		Title:      d.DocDescription,
		Filer:      d.FilerName,
	}
}

// FetchPeriodFacts implements Source. The XBRL archive holds the report as
// several inline XBRL files under PublicDoc; they are parsed together.
func (s *EDINET) FetchPeriodFacts(ctx context.Context, _ string, ref PeriodRef) (*xbrl.ParseResult, error) {
	data, err := s.client.DownloadDocument(ctx, ref.ID, edinet.DocTypeXBRL)
	if err != nil {
		return nil, err
	}
	return ParseXBRLArchive(data, xbrl.MarkupOptions{})
}

// ParseXBRLArchive parses every PublicDoc inline XBRL file of an EDINET
// XBRL archive into one result.
func ParseXBRLArchive(data []byte, opts xbrl.MarkupOptions) (*xbrl.ParseResult, error) {
	entries, err := fetcher.ReadZIP(data, fetcher.MatchSuffix("publicdoc/", "_ixbrl.htm"))
	if err != nil {
		return nil, eris.Wrap(xbrl.ErrParse, err.Error())
	}
	if len(entries) == 0 {
		return nil, eris.Wrap(xbrl.ErrParse, "archive holds no inline XBRL")
	}

	p := xbrl.NewMarkupParser(opts)
	for _, e := range entries {
		if err := p.Add(bytes.NewReader(e.Data)); err != nil {
			return nil, eris.Wrapf(err, "parse %s", e.Name)
		}
	}
	return p.Result(), nil
}

// ResolveDocument implements Source. An empty id selects the most recent
// filing.
func (s *EDINET) ResolveDocument(ctx context.Context, companyID, documentID string) (PeriodRef, error) {
	if documentID != "" {
		return PeriodRef{ID: documentID}, nil
	}
	refs, err := s.ListRecentPeriods(ctx, companyID, 1)
	if err != nil {
		return PeriodRef{}, err
	}
	if len(refs) == 0 {
		return PeriodRef{}, eris.Wrapf(ErrNotFound, "no filings for %s in the last %d days", companyID, s.opts.ScanDays)
	}
	return refs[0], nil
}

// ListFilings implements Source.
func (s *EDINET) ListFilings(ctx context.Context, companyID string, limit int) ([]PeriodRef, error) {
	return s.ListRecentPeriods(ctx, companyID, limit)
}
