package clsort

import "regexp"

const Introducer = ':'

var DefaultTags = []string{
	"div", "span", "button", "input", "a", "p",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"label", "form", "section", "article", "header", "footer", "nav", "main", "aside",
	"ul", "ol", "li", "table", "tr", "td", "th", "thead", "tbody",
	"img", "details", "summary", "pre", "code",
}

var DefaultClassAttributes = []string{"class", "className"}

// Keyword names are matched generically and then looked up in the grammar's tables, so
// ":article" can never be read as ":a" followed by garbage.
var (
	shorthandPattern = regexp.MustCompile(`:([A-Za-z][A-Za-z0-9-]*)((?:\.[A-Za-z0-9_/-]+)*)`)
	literalPattern   = regexp.MustCompile(`:([A-Za-z][A-Za-z0-9-]*)(\s+)"([^"\\]*)"`)
)

type Grammar struct {
	tags  map[string]struct{}
	attrs map[string]struct{}
}

func NewGrammar(tags, attrs []string) *Grammar {
	g := &Grammar{
		tags:  make(map[string]struct{}, len(tags)),
		attrs: make(map[string]struct{}, len(attrs)),
	}
	for _, t := range tags {
		g.tags[t] = struct{}{}
	}
	for _, a := range attrs {
		g.attrs[a] = struct{}{}
	}
	return g
}

func DefaultGrammar() *Grammar {
	return NewGrammar(DefaultTags, DefaultClassAttributes)
}

func (g *Grammar) IsTag(name string) bool {
	_, ok := g.tags[name]
	return ok
}

func (g *Grammar) IsClassAttribute(name string) bool {
	_, ok := g.attrs[name]
	return ok
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '-' || b == '/' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// atBoundary reports whether a keyword starting at start stands on its own, i.e. it is
// not the tail of an identifier or of an auto-resolved "::" keyword.
func atBoundary(text string, start int) bool {
	if start == 0 {
		return true
	}
	prev := text[start-1]
	return prev != Introducer && !isIdentByte(prev)
}
