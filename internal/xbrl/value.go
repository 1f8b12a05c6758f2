package xbrl

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// negativeGlyphs mark a negative amount in Japanese and Korean filings.
const negativeGlyphs = "△▲－"

var numberPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseValue converts a reported amount to a number. Thousands separators,
// whitespace (including the ideographic space) and minus glyphs are removed;
// the result is negated when a negative glyph is present or the text starts
// with an ASCII '-'. Full-width digits are folded to ASCII. It returns nil
// when the cleaned text is not a number; it never panics.
func ParseValue(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	negative := strings.HasPrefix(s, "-") || strings.ContainsAny(s, negativeGlyphs)

	s = width.Narrow.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == ',' || r == '-' || unicode.IsSpace(r):
			continue
		case strings.ContainsRune(negativeGlyphs, r):
			continue
		}
		b.WriteRune(r)
	}

	cleaned := b.String()
	if !numberPattern.MatchString(cleaned) {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

// applyScale multiplies v by 10^scale.
func applyScale(v float64, scale int) float64 {
	if scale == 0 {
		return v
	}
	return v * math.Pow10(scale)
}
