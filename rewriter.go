package clsort

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// BuildPlan canonicalizes every span in order. Spans whose order is already canonical are
// dropped; the first failure aborts the plan.
func BuildPlan(ctx context.Context, gw *Gateway, text string, spans []Span) ([]Replacement, error) {
	var plan []Replacement
	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ordered, err := gw.Order(ctx, s.Classes)
		if err != nil {
			var e *Error
			if errors.As(err, &e) && e.Line == 0 {
				e.Line, e.Column = position(text, s.Start)
			}
			return nil, err
		}
		if slices.Equal(ordered, s.Classes) {
			continue
		}

		plan = append(plan, Replacement{Span: s, Text: s.Render(ordered)})
	}
	return plan, nil
}

// ApplyPlan splices replacements into text from right to left, so the offsets of every
// span still to be applied keep pointing into unchanged text.
func ApplyPlan(text string, plan []Replacement) (string, error) {
	ordered := slices.Clone(plan)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Span.Start > ordered[j].Span.Start })

	result := text
	limit := len(text)
	for _, r := range ordered {
		s := r.Span
		if s.Start < 0 || s.Start > s.End || s.End > limit {
			e := newError(KindMalformed, fmt.Sprintf("replacement %d-%d overlaps or exceeds text", s.Start, s.End), nil)
			e.Line, e.Column = position(text, min(max(s.Start, 0), len(text)))
			return "", e
		}
		result = result[:s.Start] + r.Text + result[s.End:]
		limit = s.Start
	}
	return result, nil
}
