package clsort

import (
	"fmt"
	"sort"
	"strings"
)

// Region is a half-open byte range of a file that is eligible for scanning.
type Region struct {
	Start int
	Stop  int
}

func (g *Grammar) Scan(text string) ([]Span, error) {
	return g.ScanRegions(text, []Region{{Start: 0, Stop: len(text)}})
}

// ScanRegions returns the candidate spans found inside regions, sorted by start offset
// and pairwise non-overlapping. Offsets are relative to text, not to the region.
func (g *Grammar) ScanRegions(text string, regions []Region) ([]Span, error) {
	var spans []Span
	for _, r := range regions {
		if r.Start < 0 || r.Stop > len(text) || r.Start > r.Stop {
			return nil, newError(KindMalformed, fmt.Sprintf("region %d-%d outside of text", r.Start, r.Stop), nil)
		}

		shorthand, err := g.scanShorthand(text, r)
		if err != nil {
			return nil, err
		}
		literal, err := g.scanLiteral(text, r)
		if err != nil {
			return nil, err
		}
		spans = append(spans, shorthand...)
		spans = append(spans, literal...)
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return dropOverlaps(spans), nil
}

func (g *Grammar) scanShorthand(text string, r Region) ([]Span, error) {
	chunk := text[r.Start:r.Stop]
	var spans []Span
	for _, m := range shorthandPattern.FindAllStringSubmatchIndex(chunk, -1) {
		if !atBoundary(chunk, m[0]) || !g.IsTag(chunk[m[2]:m[3]]) {
			continue
		}
		if m[4] < 0 || m[4] == m[5] {
			continue
		}

		classes, err := splitSegments(chunk[m[4]:m[5]])
		if err != nil {
			return nil, malformedAt(text, r.Start+m[0], err)
		}
		if len(classes) <= 1 {
			continue
		}

		spans = append(spans, Span{
			Shape:   ShapeShorthand,
			Start:   r.Start + m[0],
			End:     r.Start + m[1],
			Prefix:  chunk[m[0]:m[3]],
			Classes: classes,
		})
	}
	return spans, nil
}

func (g *Grammar) scanLiteral(text string, r Region) ([]Span, error) {
	chunk := text[r.Start:r.Stop]
	var spans []Span
	for _, m := range literalPattern.FindAllStringSubmatchIndex(chunk, -1) {
		if !atBoundary(chunk, m[0]) || !g.IsClassAttribute(chunk[m[2]:m[3]]) {
			continue
		}
		classes := strings.Fields(chunk[m[6]:m[7]])
		if len(classes) <= 1 {
			continue
		}

		spans = append(spans, Span{
			Shape:   ShapeLiteral,
			Start:   r.Start + m[0],
			End:     r.Start + m[1],
			Prefix:  chunk[m[0]:m[6]],
			Suffix:  `"`,
			Classes: classes,
		})
	}
	return spans, nil
}

func splitSegments(part string) ([]string, error) {
	if !strings.HasPrefix(part, ".") {
		return nil, fmt.Errorf("class segments %q do not start with '.'", part)
	}
	segments := strings.Split(part[1:], ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("empty class segment in %q", part)
		}
	}
	return segments, nil
}

func dropOverlaps(spans []Span) []Span {
	out := spans[:0]
	end := -1
	for _, s := range spans {
		if s.Start < end {
			continue
		}
		out = append(out, s)
		end = s.End
	}
	return out
}

func malformedAt(text string, offset int, cause error) *Error {
	e := newError(KindMalformed, "cannot decompose match", cause)
	e.Line, e.Column = position(text, offset)
	return e
}

// position converts a byte offset to a 1-based line and byte column.
func position(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	head := text[:offset]
	line := strings.Count(head, "\n") + 1
	col := offset - strings.LastIndexByte(head, '\n')
	return line, col
}
