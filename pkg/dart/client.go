// Package dart provides a client for the OpenDART API run by Korea's
// Financial Supervisory Service.
package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// DefaultBaseURL is the OpenDART endpoint.
const DefaultBaseURL = "https://opendart.fss.or.kr/api"

// Report codes accepted by the financial statement endpoints.
const (
	ReportAnnual   = "11011"
	ReportHalf     = "11012"
	ReportQuarter1 = "11013"
	ReportQuarter3 = "11014"
)

// Statement divisions.
const (
	FSDivConsolidated = "CFS"
	FSDivSeparate     = "OFS"
)

// OpenDART status codes.
const (
	StatusOK          = "000"
	StatusNoData      = "013"
	StatusOverLimit   = "020"
	StatusMaintenance = "800"
)

// ErrNoData is returned when OpenDART has nothing for the request.
var ErrNoData = eris.New("dart: no data")

// Fetcher downloads a URL and returns the body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client defines the OpenDART operations.
type Client interface {
	// FinancialStatements returns the raw fnlttSinglAcntAll payload for one
	// company, business year and report code, after checking its status.
	FinancialStatements(ctx context.Context, corpCode, businessYear, reportCode string) ([]byte, error)
	// ListDisclosures returns filings for corpCode, newest first.
	ListDisclosures(ctx context.Context, corpCode string, opts ListOptions) (*ListResponse, error)
	// Company returns the company overview for corpCode.
	Company(ctx context.Context, corpCode string) (*Company, error)
}

// Status is the envelope header of every OpenDART response.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListOptions filters a disclosure search. Dates are YYYYMMDD.
type ListOptions struct {
	BeginDate      string
	EndDate        string
	DisclosureType string
	PageNo         int
	PageCount      int
}

// ListResponse is the list.json response.
type ListResponse struct {
	Status
	PageNo     int          `json:"page_no"`
	PageCount  int          `json:"page_count"`
	TotalCount int          `json:"total_count"`
	TotalPage  int          `json:"total_page"`
	List       []Disclosure `json:"list"`
}

// Disclosure is one filing in a list.json response.
type Disclosure struct {
	CorpCode    string `json:"corp_code"`
	CorpName    string `json:"corp_name"`
	StockCode   string `json:"stock_code"`
	CorpClass   string `json:"corp_cls"`
	ReportName  string `json:"report_nm"`
	ReceiptNo   string `json:"rcept_no"`
	FilerName   string `json:"flr_nm"`
	ReceiptDate string `json:"rcept_dt"`
	Remark      string `json:"rm"`
}

// Company is the company.json response.
type Company struct {
	Status
	CorpName        string `json:"corp_name"`
	CorpNameEng     string `json:"corp_name_eng"`
	StockName       string `json:"stock_name"`
	StockCode       string `json:"stock_code"`
	CEOName         string `json:"ceo_nm"`
	CorpClass       string `json:"corp_cls"`
	Address         string `json:"adres"`
	HomepageURL     string `json:"hm_url"`
	IndustryCode    string `json:"induty_code"`
	EstablishedDate string `json:"est_dt"`
	AccountingMonth string `json:"acc_mt"`
}

// Option configures the OpenDART client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithFSDiv selects consolidated (CFS) or separate (OFS) statements.
func WithFSDiv(div string) Option {
	return func(c *httpClient) {
		if div != "" {
			c.fsDiv = div
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	fsDiv   string
	fetcher Fetcher
}

// NewClient creates a new OpenDART client that downloads through f.
func NewClient(apiKey string, f Fetcher, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		fsDiv:   FSDivConsolidated,
		fetcher: f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	q.Set("crtfc_key", c.apiKey)
	body, err := c.fetcher.Fetch(ctx, c.baseURL+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, eris.Wrapf(err, "dart: unmarshal %s", path)
	}
	if err := statusError(st); err != nil {
		return nil, err
	}
	return body, nil
}

// FinancialStatements implements Client.
func (c *httpClient) FinancialStatements(ctx context.Context, corpCode, businessYear, reportCode string) ([]byte, error) {
	q := url.Values{}
	q.Set("corp_code", corpCode)
	q.Set("bsns_year", businessYear)
	q.Set("reprt_code", reportCode)
	q.Set("fs_div", c.fsDiv)

	body, err := c.get(ctx, "/fnlttSinglAcntAll.json", q)
	if err != nil {
		return nil, eris.Wrapf(err, "dart: financial statements %s %s/%s", corpCode, businessYear, reportCode)
	}
	return body, nil
}

// ListDisclosures implements Client.
func (c *httpClient) ListDisclosures(ctx context.Context, corpCode string, opts ListOptions) (*ListResponse, error) {
	q := url.Values{}
	q.Set("corp_code", corpCode)
	if opts.BeginDate != "" {
		q.Set("bgn_de", opts.BeginDate)
	}
	if opts.EndDate != "" {
		q.Set("end_de", opts.EndDate)
	}
	if opts.DisclosureType != "" {
		q.Set("pblntf_ty", opts.DisclosureType)
	}
	if opts.PageNo > 0 {
		q.Set("page_no", fmt.Sprint(opts.PageNo))
	}
	if opts.PageCount > 0 {
		q.Set("page_count", fmt.Sprint(opts.PageCount))
	}

	body, err := c.get(ctx, "/list.json", q)
	if err != nil {
		return nil, eris.Wrapf(err, "dart: list disclosures %s", corpCode)
	}
	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "dart: unmarshal disclosure list")
	}
	return &resp, nil
}

// Company implements Client.
func (c *httpClient) Company(ctx context.Context, corpCode string) (*Company, error) {
	q := url.Values{}
	q.Set("corp_code", corpCode)

	body, err := c.get(ctx, "/company.json", q)
	if err != nil {
		return nil, eris.Wrapf(err, "dart: company %s", corpCode)
	}
	var co Company
	if err := json.Unmarshal(body, &co); err != nil {
		return nil, eris.Wrap(err, "dart: unmarshal company")
	}
	return &co, nil
}

// statusError maps an OpenDART status to an error. 010-012 and 901 are
// key problems, 020 is the daily request limit.
func statusError(st Status) error {
	switch st.Status {
	case StatusOK:
		return nil
	case StatusNoData:
		return ErrNoData
	case "010", "011", "012", "901":
		return &resilience.AuthError{Service: "dart", Message: fmt.Sprintf("status %s: %s", st.Status, st.Message)}
	case StatusOverLimit:
		return resilience.NewTransientError(eris.Errorf("dart: status %s: %s", st.Status, st.Message), 429)
	case StatusMaintenance:
		return resilience.NewTransientError(eris.Errorf("dart: status %s: %s", st.Status, st.Message), 503)
	default:
		return eris.Errorf("dart: status %s: %s", st.Status, st.Message)
	}
}
