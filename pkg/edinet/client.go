// Package edinet provides a client for the EDINET API v2 operated by
// Japan's Financial Services Agency.
package edinet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/resilience"
)

// DefaultBaseURL is the EDINET API v2 endpoint.
const DefaultBaseURL = "https://api.edinet-fsa.go.jp/api/v2"

// Document download types.
const (
	DocTypeXBRL = 1
	DocTypePDF  = 2
	DocTypeCSV  = 5
)

// Fetcher downloads a URL and returns the body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client defines the EDINET operations.
type Client interface {
	// ListDocuments returns the documents submitted on date.
	ListDocuments(ctx context.Context, date time.Time) ([]Document, error)
	// DownloadDocument returns the archive for docID in the given download type.
	DownloadDocument(ctx context.Context, docID string, docType int) ([]byte, error)
}

// Metadata is the envelope header of every JSON response.
type Metadata struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ResultSet ResultSet `json:"resultset"`
}

// ResultSet holds the document count for a date.
type ResultSet struct {
	Count int `json:"count"`
}

// ListResponse is the response of documents.json with type=2.
type ListResponse struct {
	Metadata Metadata   `json:"metadata"`
	Results  []Document `json:"results"`
}

// Document is one submitted filing.
type Document struct {
	SeqNumber        int    `json:"seqNumber"`
	DocID            string `json:"docID"`
	EdinetCode       string `json:"edinetCode"`
	SecCode          string `json:"secCode"`
	JCN              string `json:"JCN"`
	FilerName        string `json:"filerName"`
	OrdinanceCode    string `json:"ordinanceCode"`
	FormCode         string `json:"formCode"`
	DocTypeCode      string `json:"docTypeCode"`
	PeriodStart      string `json:"periodStart"`
	PeriodEnd        string `json:"periodEnd"`
	SubmitDateTime   string `json:"submitDateTime"`
	DocDescription   string `json:"docDescription"`
	WithdrawalStatus string `json:"withdrawalStatus"`
	XBRLFlag         string `json:"xbrlFlag"`
	PDFFlag          string `json:"pdfFlag"`
	CSVFlag          string `json:"csvFlag"`
}

// HasXBRL reports whether the filing carries XBRL data.
func (d Document) HasXBRL() bool { return d.XBRLFlag == "1" }

// Withdrawn reports whether the filer withdrew the document.
func (d Document) Withdrawn() bool { return d.WithdrawalStatus != "" && d.WithdrawalStatus != "0" }

// MatchesCompany reports whether id names the filer, either as an EDINET
// code (E02144) or as a 4- or 5-digit securities code (7203, 72030).
func (d Document) MatchesCompany(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if strings.EqualFold(d.EdinetCode, id) {
		return true
	}
	if d.SecCode == "" {
		return false
	}
	return d.SecCode == id || (len(id) == 4 && strings.HasPrefix(d.SecCode, id))
}

// SubmitDate returns the date part of SubmitDateTime.
func (d Document) SubmitDate() string {
	date, _, _ := strings.Cut(d.SubmitDateTime, " ")
	return date
}

// errorResponse covers both error shapes EDINET returns: the gateway's
// {"StatusCode":401,"message":...} and the API's metadata envelope.
type errorResponse struct {
	StatusCode int      `json:"StatusCode"`
	Message    string   `json:"message"`
	Metadata   Metadata `json:"metadata"`
}

func (e errorResponse) status() (int, string) {
	if e.StatusCode != 0 {
		return e.StatusCode, e.Message
	}
	var code int
	_, _ = fmt.Sscanf(e.Metadata.Status, "%d", &code)
	return code, e.Metadata.Message
}

// Option configures the EDINET client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	fetcher Fetcher
}

// NewClient creates a new EDINET client that downloads through f.
func NewClient(apiKey string, f Fetcher, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		fetcher: f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) endpoint(path string, q url.Values) string {
	q.Set("Subscription-Key", c.apiKey)
	return c.baseURL + path + "?" + q.Encode()
}

// ListDocuments implements Client.
func (c *httpClient) ListDocuments(ctx context.Context, date time.Time) ([]Document, error) {
	q := url.Values{}
	q.Set("date", date.Format(time.DateOnly))
	q.Set("type", "2")

	body, err := c.fetcher.Fetch(ctx, c.endpoint("/documents.json", q))
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: list documents %s", date.Format(time.DateOnly))
	}

	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "edinet: unmarshal document list")
	}
	if err := checkStatus(body); err != nil {
		return nil, eris.Wrapf(err, "edinet: list documents %s", date.Format(time.DateOnly))
	}
	return resp.Results, nil
}

// DownloadDocument implements Client. EDINET answers with a JSON error body
// instead of an archive when the document is unknown or not yet published.
func (c *httpClient) DownloadDocument(ctx context.Context, docID string, docType int) ([]byte, error) {
	if docID == "" {
		return nil, eris.New("edinet: document id is required")
	}
	q := url.Values{}
	q.Set("type", fmt.Sprint(docType))

	body, err := c.fetcher.Fetch(ctx, c.endpoint("/documents/"+url.PathEscape(docID), q))
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: download document %s", docID)
	}
	if looksLikeJSON(body) {
		if err := checkStatus(body); err != nil {
			return nil, eris.Wrapf(err, "edinet: download document %s", docID)
		}
		return nil, eris.Errorf("edinet: download document %s: unexpected JSON response", docID)
	}
	return body, nil
}

// checkStatus converts an error envelope into an error. Bodies that are
// not error envelopes pass.
func checkStatus(body []byte) error {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return nil
	}
	code, msg := e.status()
	switch {
	case code == 0 || code == 200:
		return nil
	case resilience.IsAuthHTTPStatus(code):
		return &resilience.AuthError{Service: "edinet", StatusCode: code, Message: msg}
	case resilience.IsTransientHTTPStatus(code):
		return resilience.NewTransientError(eris.Errorf("status %d: %s", code, msg), code)
	default:
		return eris.Errorf("status %d: %s", code, msg)
	}
}

func looksLikeJSON(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '{'
}
