package xbrl

import (
	"regexp"
	"strings"
)

// Axis keywords per dimension kind: IFRS/ESEF axis names, then Japanese and
// Korean terms. Keys are matched case-insensitively.
var (
	geographyKeywords = []string{
		"geograph", "region", "country", "area", "location", "domicile",
		"地域", "所在地", "国別", "지역", "국가",
	}
	segmentKeywords = []string{
		"segment", "businessline", "lineofbusiness", "division",
		"セグメント", "事業", "부문", "사업",
	}
	productKeywords = []string{
		"product", "service", "goods", "brand",
		"製品", "商品", "サービス", "제품", "상품", "서비스",
	}
)

var capitalLetter = regexp.MustCompile(`([A-Z])`)

// ExtractGeography returns the cleaned member of the first geography axis.
func ExtractGeography(dims Dimensions) *string {
	return extractDimension(dims, geographyKeywords)
}

// ExtractSegment returns the cleaned member of the first segment axis.
func ExtractSegment(dims Dimensions) *string {
	return extractDimension(dims, segmentKeywords)
}

// ExtractProduct returns the cleaned member of the first product axis.
func ExtractProduct(dims Dimensions) *string {
	return extractDimension(dims, productKeywords)
}

// HasGeography reports whether ExtractGeography finds a label.
func HasGeography(dims Dimensions) bool { return ExtractGeography(dims) != nil }

// HasSegment reports whether ExtractSegment finds a label.
func HasSegment(dims Dimensions) bool { return ExtractSegment(dims) != nil }

// HasProduct reports whether ExtractProduct finds a label.
func HasProduct(dims Dimensions) bool { return ExtractProduct(dims) != nil }

func extractDimension(dims Dimensions, keywords []string) *string {
	for _, d := range dims {
		if containsAny(strings.ToLower(d.Axis), keywords) {
			v := CleanMember(d.Member)
			return &v
		}
	}
	return nil
}

// CleanMember turns a raw member QName into a display label: the namespace
// prefix and a trailing "Member" are removed and the camel case is split,
// so "ifrs-full:JapanMember" becomes "Japan".
func CleanMember(member string) string {
	if i := strings.LastIndexByte(member, ':'); i >= 0 {
		member = member[i+1:]
	}
	member = strings.TrimSuffix(member, "Member")
	member = capitalLetter.ReplaceAllString(member, " $1")
	return strings.TrimSpace(member)
}
