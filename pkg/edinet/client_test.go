package edinet

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/resilience"
)

const listBody = `{
  "metadata": {
    "title": "提出された書類を把握するためのAPI",
    "resultset": {"count": 2},
    "status": "200",
    "message": "OK"
  },
  "results": [
    {
      "seqNumber": 1,
      "docID": "S100TR7I",
      "edinetCode": "E02144",
      "secCode": "72030",
      "filerName": "トヨタ自動車株式会社",
      "docTypeCode": "120",
      "periodStart": "2023-04-01",
      "periodEnd": "2024-03-31",
      "submitDateTime": "2024-06-25 15:00",
      "docDescription": "有価証券報告書－第120期",
      "withdrawalStatus": "0",
      "xbrlFlag": "1"
    },
    {
      "seqNumber": 2,
      "docID": "S100TX00",
      "edinetCode": "E99999",
      "secCode": null,
      "filerName": "Fund",
      "docTypeCode": "030",
      "submitDateTime": "2024-06-25 16:00",
      "withdrawalStatus": "0",
      "xbrlFlag": "0"
    }
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	return NewClient("test-key", f, WithBaseURL(srv.URL+"/"))
}

func TestListDocuments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents.json", r.URL.Path)
		assert.Equal(t, "2024-06-25", r.URL.Query().Get("date"))
		assert.Equal(t, "2", r.URL.Query().Get("type"))
		assert.Equal(t, "test-key", r.URL.Query().Get("Subscription-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listBody))
	})

	docs, err := client.ListDocuments(context.Background(), time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	d := docs[0]
	assert.Equal(t, "S100TR7I", d.DocID)
	assert.Equal(t, "2024-03-31", d.PeriodEnd)
	assert.Equal(t, "2024-06-25", d.SubmitDate())
	assert.True(t, d.HasXBRL())
	assert.False(t, d.Withdrawn())
	assert.False(t, docs[1].HasXBRL())
}

func TestListDocuments_ErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata":{"title":"x","status":"400","message":"Bad Request"}}`))
	})

	_, err := client.ListDocuments(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400: Bad Request")
}

func TestListDocuments_AuthEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata":{"status":"401","message":"Access denied"}}`))
	})

	_, err := client.ListDocuments(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
}

func TestListDocuments_HTTPUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"StatusCode":401,"message":"Access denied due to invalid subscription key."}`))
	})

	_, err := client.ListDocuments(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.NotContains(t, err.Error(), "test-key")
}

func TestListDocuments_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{invalid`))
	})

	_, err := client.ListDocuments(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal document list")
}

func TestDownloadDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("XBRL/PublicDoc/0101010_honbun_ixbrl.htm")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("<html></html>"))
	require.NoError(t, zw.Close())

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/S100TR7I", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(buf.Bytes())
	})

	data, err := client.DownloadDocument(context.Background(), "S100TR7I", DocTypeXBRL)
	require.NoError(t, err)
	assert.True(t, fetcher.IsZIP(data))
}

func TestDownloadDocument_JSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"metadata":{"title":"書類取得API","status":"404","message":"Not Found"}}`))
	})

	_, err := client.DownloadDocument(context.Background(), "S100XXXX", DocTypeXBRL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404: Not Found")
}

func TestDownloadDocument_RequiresID(t *testing.T) {
	client := NewClient("k", nil)
	_, err := client.DownloadDocument(context.Background(), "", DocTypeXBRL)
	require.Error(t, err)
}

func TestDocument_MatchesCompany(t *testing.T) {
	d := Document{EdinetCode: "E02144", SecCode: "72030"}

	assert.True(t, d.MatchesCompany("E02144"))
	assert.True(t, d.MatchesCompany("e02144"))
	assert.True(t, d.MatchesCompany("7203"))
	assert.True(t, d.MatchesCompany("72030"))
	assert.False(t, d.MatchesCompany("720"))
	assert.False(t, d.MatchesCompany("E99999"))
	assert.False(t, d.MatchesCompany(""))
	assert.False(t, Document{EdinetCode: "E1"}.MatchesCompany("7203"))
}

func TestDocument_Withdrawn(t *testing.T) {
	assert.False(t, Document{}.Withdrawn())
	assert.False(t, Document{WithdrawalStatus: "0"}.Withdrawn())
	assert.True(t, Document{WithdrawalStatus: "1"}.Withdrawn())
}
