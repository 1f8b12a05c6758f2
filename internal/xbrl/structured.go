package xbrl

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// unmappedAccountID is the placeholder DART uses for accounts outside the
// standard chart.
const unmappedAccountID = "-표준계정코드 미사용-"

// LineItem is one row of a DART financial statement response.
type LineItem struct {
	ReceiptNo              string `json:"rcept_no"`
	ReportCode             string `json:"reprt_code"`
	BusinessYear           string `json:"bsns_year"`
	CorpCode               string `json:"corp_code"`
	StatementDiv           string `json:"sj_div"`
	StatementName          string `json:"sj_nm"`
	AccountID              string `json:"account_id"`
	AccountName            string `json:"account_nm"`
	AccountDetail          string `json:"account_detail"`
	CurrentTermName        string `json:"thstrm_nm"`
	CurrentTermAmount      string `json:"thstrm_amount"`
	PreviousTermName       string `json:"frmtrm_nm"`
	PreviousTermAmount     string `json:"frmtrm_amount"`
	BeforePreviousTermName string `json:"bfefrmtrm_nm"`
	BeforePreviousAmount   string `json:"bfefrmtrm_amount"`
	Order                  string `json:"ord"`
	Currency               string `json:"currency"`
}

// StructuredPayload is the JSON envelope holding DART line items.
type StructuredPayload struct {
	List []LineItem `json:"list"`
}

// ParseStructured decodes a DART line-item payload and converts it to facts.
func ParseStructured(r io.Reader) (*ParseResult, error) {
	var payload StructuredPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, eris.Wrapf(ErrParse, "decode line items: %v", err)
	}
	return FactsFromLineItems(payload.List), nil
}

// FactsFromLineItems converts DART line items to facts. The fact value is
// the current-term amount, falling back to the prior-term amount, then "0".
func FactsFromLineItems(items []LineItem) *ParseResult {
	facts := make([]Fact, 0, len(items))
	for _, item := range items {
		facts = append(facts, lineItemFact(item))
	}
	return newParseResult(facts)
}

func lineItemFact(item LineItem) Fact {
	raw := firstNonEmpty(item.CurrentTermAmount, item.PreviousTermAmount, "0")

	accountID := item.AccountID
	if accountID == unmappedAccountID {
		accountID = ""
	}

	return Fact{
		Namespace:   KGAAPNamespace,
		Concept:     firstNonEmpty(accountID, item.AccountName),
		AccountName: item.AccountName,
		Type:        TypeNumeric,
		Value:       ParseValue(raw),
		RawValue:    raw,
		Period: Period{
			Year:       item.BusinessYear,
			ReportType: item.ReportCode,
		},
		Dimensions: Dimensions{},
		Terms: &Terms{
			Current:        ParseValue(item.CurrentTermAmount),
			Previous:       ParseValue(item.PreviousTermAmount),
			BeforePrevious: ParseValue(item.BeforePreviousAmount),
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
