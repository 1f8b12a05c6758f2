package xbrl

import "strings"

// ValueRange bounds a fact value inclusively. Nil bounds are open.
type ValueRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v lies within the range.
func (r ValueRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Criteria selects facts. Zero-valued fields are not applied; all set
// fields must match.
type Criteria struct {
	// Concept is a case-insensitive substring of Fact.Concept.
	Concept string `json:"concept,omitempty"`
	// ValueRange rejects facts outside the bounds, and facts without a value.
	ValueRange *ValueRange `json:"value_range,omitempty"`
	// Period is a substring of the fact's effective period.
	Period string `json:"period,omitempty"`
	// HasValue rejects facts without a parsed value.
	HasValue bool `json:"has_value,omitempty"`
	// HasDimensions rejects facts without dimensions.
	HasDimensions bool `json:"has_dimensions,omitempty"`
}

// Merge returns c overlaid with the fields set in extra.
func (c Criteria) Merge(extra Criteria) Criteria {
	if extra.Concept != "" {
		c.Concept = extra.Concept
	}
	if extra.ValueRange != nil {
		c.ValueRange = extra.ValueRange
	}
	if extra.Period != "" {
		c.Period = extra.Period
	}
	c.HasValue = c.HasValue || extra.HasValue
	c.HasDimensions = c.HasDimensions || extra.HasDimensions
	return c
}

// Match reports whether f satisfies every set criterion.
func (c Criteria) Match(f Fact) bool {
	if c.Concept != "" && !strings.Contains(strings.ToLower(f.Concept), strings.ToLower(c.Concept)) {
		return false
	}
	if c.ValueRange != nil && (f.Value == nil || !c.ValueRange.Contains(*f.Value)) {
		return false
	}
	if c.Period != "" && !strings.Contains(f.Period.Effective(), c.Period) {
		return false
	}
	if c.HasValue && f.Value == nil {
		return false
	}
	if c.HasDimensions && len(f.Dimensions) == 0 {
		return false
	}
	return true
}

// Filter returns the facts matching c in their original order. The input
// slice is not modified.
func Filter(facts []Fact, c Criteria) []Fact {
	out := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if c.Match(f) {
			out = append(out, f)
		}
	}
	return out
}
