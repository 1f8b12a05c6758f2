// Package xbrl parses disclosure filings (inline XBRL markup and DART JSON
// line items) into a flat, normalized fact model and provides the pure
// functions that operate on it: concept classification, dimension
// extraction and fact filtering.
package xbrl

import (
	"bytes"
	"encoding/json"
)

// DefaultNamespace is used when a concept name carries no taxonomy prefix.
const DefaultNamespace = "unknown"

// KGAAPNamespace is the namespace assigned to every DART line item.
const KGAAPNamespace = "k-gaap"

// Fact types.
const (
	TypeNumeric = "numeric"
	TypeText    = "text"
)

// Period types reported on enriched facts.
const (
	PeriodInstant  = "instant"
	PeriodDuration = "duration"
)

// Fact is one reported value from a filing. Value is nil when the raw text
// is non-numeric or unparsable; when set, Scale has already been applied.
type Fact struct {
	Namespace   string     `json:"namespace"`
	Concept     string     `json:"concept"`
	AccountName string     `json:"account_name,omitempty"`
	Type        string     `json:"type"`
	Value       *float64   `json:"value"`
	RawValue    string     `json:"raw_value"`
	ContextRef  string     `json:"context_ref,omitempty"`
	UnitRef     string     `json:"unit_ref,omitempty"`
	Decimals    string     `json:"decimals,omitempty"`
	Scale       int        `json:"scale"`
	Period      Period     `json:"period"`
	Dimensions  Dimensions `json:"dimensions"`
	Terms       *Terms     `json:"terms,omitempty"`
}

// HasValue reports whether the fact carries a parsed numeric value.
func (f Fact) HasValue() bool {
	return f.Value != nil
}

// Geography returns the geography label derived from the fact's dimensions.
func (f Fact) Geography() *string { return ExtractGeography(f.Dimensions) }

// Segment returns the business segment label derived from the fact's dimensions.
func (f Fact) Segment() *string { return ExtractSegment(f.Dimensions) }

// Product returns the product label derived from the fact's dimensions.
func (f Fact) Product() *string { return ExtractProduct(f.Dimensions) }

// Period is either an instant, a start/end duration, or (for DART line
// items) a business year and report code.
type Period struct {
	Instant    string `json:"instant,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	Year       string `json:"year,omitempty"`
	ReportType string `json:"report_type,omitempty"`
}

// Effective returns the string used for period matching: the end date,
// falling back to the instant, falling back to "".
func (p Period) Effective() string {
	if p.EndDate != "" {
		return p.EndDate
	}
	return p.Instant
}

// Type returns PeriodInstant for point-in-time periods and PeriodDuration
// for everything else.
func (p Period) Type() string {
	if p.Instant != "" {
		return PeriodInstant
	}
	return PeriodDuration
}

// Terms holds the three explicit DART reporting terms of a line item.
type Terms struct {
	Current        *float64 `json:"current"`
	Previous       *float64 `json:"previous"`
	BeforePrevious *float64 `json:"before_previous"`
}

// Dimension is one axis/member pair of a fact's context.
type Dimension struct {
	Axis   string
	Member string
}

// Dimensions is an ordered axis→member mapping. Order follows the source
// document; extractors scan it front to back.
type Dimensions []Dimension

// Get returns the member for axis.
func (d Dimensions) Get(axis string) (string, bool) {
	for _, dim := range d {
		if dim.Axis == axis {
			return dim.Member, true
		}
	}
	return "", false
}

// with returns a copy of d with axis set to member. Empty axes are dropped.
func (d Dimensions) with(axis, member string) Dimensions {
	if axis == "" {
		return d
	}
	for i, dim := range d {
		if dim.Axis == axis {
			out := append(Dimensions(nil), d...)
			out[i].Member = member
			return out
		}
	}
	return append(d, Dimension{Axis: axis, Member: member})
}

// MarshalJSON encodes the dimensions as a JSON object in source order.
// A nil value encodes as {} so consumers never see null.
func (d Dimensions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dim := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(dim.Axis)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(dim.Member)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Context groups an entity, a period and explicit dimension members.
type Context struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entity_id"`
	Period     Period     `json:"period"`
	Dimensions Dimensions `json:"dimensions"`
}

// Unit is a measure keyed by unit id.
type Unit struct {
	ID      string `json:"id"`
	Measure string `json:"measure"`
}

// ParseResult is the output of both parsers. Contexts and Units are only
// populated by the markup parser.
type ParseResult struct {
	Facts        []Fact             `json:"facts"`
	Contexts     map[string]Context `json:"contexts,omitempty"`
	Units        map[string]Unit    `json:"units,omitempty"`
	TotalFacts   int                `json:"total_facts"`
	NumericFacts int                `json:"numeric_facts"`
}

func newParseResult(facts []Fact) *ParseResult {
	if facts == nil {
		facts = []Fact{}
	}
	numeric := 0
	for _, f := range facts {
		if f.Value != nil {
			numeric++
		}
	}
	return &ParseResult{
		Facts:        facts,
		TotalFacts:   len(facts),
		NumericFacts: numeric,
	}
}
