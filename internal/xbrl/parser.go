package xbrl

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// ErrParse is returned when a document cannot be parsed at all.
var ErrParse = eris.New("xbrl: malformed document")

// MarkupOptions configures inline XBRL parsing.
type MarkupOptions struct {
	// IncludeNonNumeric emits nonFraction facts whose value cannot be parsed
	// and one text fact per nonNumeric element.
	IncludeNonNumeric bool
}

// MarkupParser accumulates inline XBRL documents. A filing may spread its
// contexts and facts over several files, so facts are resolved against
// contexts only when Result is called.
type MarkupParser struct {
	opts     MarkupOptions
	contexts map[string]Context
	units    map[string]Unit
	numeric  []Fact
	text     []Fact
}

// NewMarkupParser creates an empty parser.
func NewMarkupParser(opts MarkupOptions) *MarkupParser {
	return &MarkupParser{
		opts:     opts,
		contexts: make(map[string]Context),
		units:    make(map[string]Unit),
	}
}

// ParseMarkup parses a single inline XBRL document.
func ParseMarkup(r io.Reader, opts MarkupOptions) (*ParseResult, error) {
	p := NewMarkupParser(opts)
	if err := p.Add(r); err != nil {
		return nil, err
	}
	return p.Result(), nil
}

// Add parses one document and accumulates its contexts, units and facts.
// Elements with missing attributes are skipped or get empty fields; only an
// unreadable or empty document is an error.
func (p *MarkupParser) Add(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return eris.Wrapf(ErrParse, "read document: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return eris.Wrap(ErrParse, "empty document")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return eris.Wrapf(ErrParse, "parse markup: %v", err)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		switch localName(goquery.NodeName(s)) {
		case "context":
			if c, ok := parseContext(s); ok {
				p.contexts[c.ID] = c
			}
		case "unit":
			if u, ok := parseUnit(s); ok {
				p.units[u.ID] = u
			}
		case "nonfraction":
			if f, ok := p.parseNonFraction(s); ok {
				p.numeric = append(p.numeric, f)
			}
		case "nonnumeric":
			if !p.opts.IncludeNonNumeric {
				return
			}
			if f, ok := parseNonNumeric(s); ok {
				p.text = append(p.text, f)
			}
		}
	})

	return nil
}

// Result resolves every accumulated fact against its context and returns
// the parse output. Facts whose context is unknown keep an empty period and
// empty dimensions.
func (p *MarkupParser) Result() *ParseResult {
	facts := make([]Fact, 0, len(p.numeric)+len(p.text))
	for _, group := range [][]Fact{p.numeric, p.text} {
		for _, f := range group {
			f.Dimensions = Dimensions{}
			if c, ok := p.contexts[f.ContextRef]; ok {
				f.Period = c.Period
				f.Dimensions = append(Dimensions{}, c.Dimensions...)
			}
			facts = append(facts, f)
		}
	}

	res := newParseResult(facts)
	res.Contexts = p.contexts
	res.Units = p.units
	return res
}

func (p *MarkupParser) parseNonFraction(s *goquery.Selection) (Fact, bool) {
	name := attr(s, "name")
	if name == "" {
		return Fact{}, false
	}
	ns, concept := splitName(name)

	scaleAttr := attr(s, "scale")
	if scaleAttr == "" {
		scaleAttr = "0"
	}
	scale, err := strconv.Atoi(scaleAttr)
	if err != nil {
		scale = 0
	}

	f := Fact{
		Namespace:  ns,
		Concept:    concept,
		Type:       TypeNumeric,
		ContextRef: attr(s, "contextref"),
		UnitRef:    attr(s, "unitref"),
		Decimals:   attr(s, "decimals"),
		Scale:      scale,
	}

	if strings.EqualFold(attr(s, "xsi:nil"), "true") {
		return f, p.opts.IncludeNonNumeric
	}

	f.RawValue = strings.TrimSpace(s.Text())
	f.Value = ParseValue(f.RawValue)
	if f.Value == nil && isZeroFormat(attr(s, "format")) {
		zero := 0.0
		f.Value = &zero
	}
	if f.Value != nil {
		v := applyScale(*f.Value, scale)
		if attr(s, "sign") == "-" {
			v = -v
		}
		f.Value = &v
	}

	if f.Value == nil && !p.opts.IncludeNonNumeric {
		return Fact{}, false
	}
	return f, true
}

func parseNonNumeric(s *goquery.Selection) (Fact, bool) {
	name := attr(s, "name")
	if name == "" {
		return Fact{}, false
	}
	ns, concept := splitName(name)
	return Fact{
		Namespace:  ns,
		Concept:    concept,
		Type:       TypeText,
		RawValue:   strings.TrimSpace(s.Text()),
		ContextRef: attr(s, "contextref"),
	}, true
}

func parseContext(s *goquery.Selection) (Context, bool) {
	id := attr(s, "id")
	if id == "" {
		return Context{}, false
	}
	c := Context{ID: id, Dimensions: Dimensions{}}

	ownDescendants(s, "context").Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		switch localName(goquery.NodeName(el)) {
		case "identifier":
			c.EntityID = text
		case "instant":
			c.Period.Instant = text
		case "startdate":
			c.Period.StartDate = text
		case "enddate":
			c.Period.EndDate = text
		case "explicitmember", "typedmember":
			c.Dimensions = c.Dimensions.with(attr(el, "dimension"), text)
		}
	})
	return c, true
}

func parseUnit(s *goquery.Selection) (Unit, bool) {
	id := attr(s, "id")
	if id == "" {
		return Unit{}, false
	}
	var measures []string
	ownDescendants(s, "unit").Each(func(_ int, el *goquery.Selection) {
		if localName(goquery.NodeName(el)) == "measure" {
			measures = append(measures, strings.TrimSpace(el.Text()))
		}
	})
	return Unit{ID: id, Measure: strings.Join(measures, "/")}, true
}

// ownDescendants returns the descendants of s whose nearest enclosing
// element named boundary is s itself. Unclosed empty elements make the HTML
// parser nest siblings, so a context may end up containing the next one.
func ownDescendants(s *goquery.Selection, boundary string) *goquery.Selection {
	if len(s.Nodes) == 0 {
		return s
	}
	root := s.Nodes[0]
	return s.Find("*").FilterFunction(func(_ int, el *goquery.Selection) bool {
		for n := el.Nodes[0].Parent; n != nil; n = n.Parent {
			if n.Type == html.ElementNode && localName(n.Data) == boundary {
				return n == root
			}
		}
		return false
	})
}

// splitName splits "ns:Concept" on the first colon.
func splitName(name string) (string, string) {
	ns, concept, ok := strings.Cut(name, ":")
	if !ok {
		return DefaultNamespace, name
	}
	return ns, concept
}

func localName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		tag = tag[i+1:]
	}
	return strings.ToLower(tag)
}

// attr looks up an attribute case-insensitively; the HTML parser lowercases
// attribute names such as contextRef.
func attr(s *goquery.Selection, name string) string {
	if len(s.Nodes) == 0 {
		return ""
	}
	for _, a := range s.Nodes[0].Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// isZeroFormat reports whether an ixt format renders a dash as zero.
func isZeroFormat(format string) bool {
	switch localName(format) {
	case "fixed-zero", "zerodash", "numdash":
		return true
	}
	return false
}
