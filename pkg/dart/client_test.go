package dart

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/fetcher"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

const statementsBody = `{
  "status": "000",
  "message": "정상",
  "list": [
    {
      "rcept_no": "20240312000736",
      "reprt_code": "11011",
      "bsns_year": "2023",
      "corp_code": "00126380",
      "sj_div": "IS",
      "sj_nm": "손익계산서",
      "account_id": "ifrs-full_Revenue",
      "account_nm": "매출액",
      "thstrm_nm": "제 55 기",
      "thstrm_amount": "258,935,494,000,000",
      "frmtrm_nm": "제 54 기",
      "frmtrm_amount": "302,231,360,000,000",
      "bfefrmtrm_amount": "279,604,799,000,000",
      "ord": "1",
      "currency": "KRW"
    }
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Timeout: 5 * time.Second})
	return NewClient("test-key", f, append([]Option{WithBaseURL(srv.URL)}, opts...)...)
}

func TestFinancialStatements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/fnlttSinglAcntAll.json", r.URL.Path)
		assert.Equal(t, "test-key", q.Get("crtfc_key"))
		assert.Equal(t, "00126380", q.Get("corp_code"))
		assert.Equal(t, "2023", q.Get("bsns_year"))
		assert.Equal(t, ReportAnnual, q.Get("reprt_code"))
		assert.Equal(t, "CFS", q.Get("fs_div"))
		_, _ = w.Write([]byte(statementsBody))
	})

	body, err := client.FinancialStatements(context.Background(), "00126380", "2023", ReportAnnual)
	require.NoError(t, err)

	res, err := xbrl.ParseStructured(bytes.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Facts, 1)
	assert.Equal(t, "ifrs-full_Revenue", res.Facts[0].Concept)
	assert.Equal(t, 258935494000000.0, *res.Facts[0].Value)
}

func TestFinancialStatements_SeparateStatements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OFS", r.URL.Query().Get("fs_div"))
		_, _ = w.Write([]byte(statementsBody))
	}, WithFSDiv(FSDivSeparate))

	_, err := client.FinancialStatements(context.Background(), "00126380", "2023", ReportAnnual)
	require.NoError(t, err)
}

func TestFinancialStatements_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantNoData bool
		wantAuth   bool
		wantTrans  bool
		wantErr    string
	}{
		{name: "no_data", body: `{"status":"013","message":"조회된 데이타가 없습니다."}`, wantNoData: true},
		{name: "bad_key", body: `{"status":"010","message":"등록되지 않은 키입니다."}`, wantAuth: true},
		{name: "expired_key", body: `{"status":"901","message":"사용자 계정의 개인정보 보유기간이 만료되어 사용할 수 없는 키입니다."}`, wantAuth: true},
		{name: "over_limit", body: `{"status":"020","message":"요청 제한을 초과하였습니다."}`, wantTrans: true},
		{name: "invalid_param", body: `{"status":"100","message":"필드의 부적절한 값입니다."}`, wantErr: "status 100"},
		{name: "malformed", body: `not json`, wantErr: "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			body, err := client.FinancialStatements(context.Background(), "00126380", "2023", ReportAnnual)
			require.Error(t, err)
			assert.Nil(t, body)
			assert.Equal(t, tt.wantNoData, errors.Is(err, ErrNoData))
			assert.Equal(t, tt.wantAuth, resilience.IsAuth(err))
			assert.Equal(t, tt.wantTrans, resilience.IsTransient(err))
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.NotContains(t, err.Error(), "test-key")
		})
	}
}

func TestListDisclosures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/list.json", r.URL.Path)
		assert.Equal(t, "20230101", q.Get("bgn_de"))
		assert.Equal(t, "A", q.Get("pblntf_ty"))
		assert.Equal(t, "10", q.Get("page_count"))
		assert.Empty(t, q.Get("page_no"))
		_, _ = w.Write([]byte(`{
			"status": "000", "message": "정상", "page_no": 1, "page_count": 10, "total_count": 1, "total_page": 1,
			"list": [{"corp_code": "00126380", "corp_name": "삼성전자", "stock_code": "005930", "corp_cls": "Y",
			          "report_nm": "사업보고서 (2023.12)", "rcept_no": "20240312000736", "flr_nm": "삼성전자",
			          "rcept_dt": "20240312", "rm": "연"}]
		}`))
	})

	resp, err := client.ListDisclosures(context.Background(), "00126380", ListOptions{
		BeginDate:      "20230101",
		DisclosureType: "A",
		PageCount:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "사업보고서 (2023.12)", resp.List[0].ReportName)
	assert.Equal(t, "20240312", resp.List[0].ReceiptDate)
}

func TestCompany(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"000","message":"정상","corp_name":"삼성전자(주)","corp_name_eng":"SAMSUNG ELECTRONICS CO,.LTD","stock_code":"005930","acc_mt":"12"}`))
	})

	co, err := client.Company(context.Background(), "00126380")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자(주)", co.CorpName)
	assert.Equal(t, "005930", co.StockCode)
	assert.Equal(t, "12", co.AccountingMonth)
}

func TestCompany_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
	})

	_, err := client.Company(context.Background(), "99999999")
	assert.True(t, errors.Is(err, ErrNoData))
}
