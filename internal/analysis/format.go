package analysis

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCurrency renders v with thousands grouping after the currency
// symbol, e.g. "¥1,234,567" or "-₩9,800.50". Whole amounts drop the
// decimals.
func FormatCurrency(symbol string, v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	p := message.NewPrinter(language.English)
	if v == math.Trunc(v) {
		return sign + symbol + p.Sprintf("%.0f", v)
	}
	return sign + symbol + p.Sprintf("%.2f", v)
}

// formatPercent renders a ratio already multiplied by 100, or "N/A".
func formatPercent(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *p)
}

func formatSignedPercent(p float64) string {
	return fmt.Sprintf("%+.2f%%", p)
}

// percentOf returns part/total*100, or nil when total is 0.
func percentOf(part, total float64) *float64 {
	if total == 0 {
		return nil
	}
	p := part / total * 100
	return &p
}
