package clsort

import "strings"

type Shape int

const (
	ShapeShorthand Shape = iota + 1 // :div.flex.p-4
	ShapeLiteral                    // :class "flex p-4"
)

func (s Shape) String() string {
	switch s {
	case ShapeShorthand:
		return "shorthand"
	case ShapeLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Separator is the join convention used when the class list is written back.
func (s Shape) Separator() string {
	if s == ShapeShorthand {
		return "."
	}
	return " "
}

// Span is a located class list. Start and End are a half-open byte range into the
// original text and include the delimiters of the shape.
type Span struct {
	Shape   Shape
	Start   int
	End     int
	Prefix  string
	Suffix  string
	Classes []string
}

// Render writes classes back in the shape of s. Shorthand classes each carry their
// leading dot, so the tag stays separate from the first class.
func (s Span) Render(classes []string) string {
	body := strings.Join(classes, s.Shape.Separator())
	if s.Shape == ShapeShorthand && len(classes) > 0 {
		body = s.Shape.Separator() + body
	}
	return s.Prefix + body + s.Suffix
}

type Replacement struct {
	Span Span
	Text string
}

type FileOutcome struct {
	Path         string
	Target       string // Path with symlinks resolved, the file actually written
	Modified     bool
	Replacements int
	Err          error

	before []byte
	after  []byte
}

type FileFailure struct {
	Path string
	Err  error
}

type Summary struct {
	Scanned  int
	Modified []string
	Failed   []FileFailure
	Check    bool
	Message  string
}
