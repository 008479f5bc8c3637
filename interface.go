package clsort

import "context"

// SortText puts every class list in text into the order given by canon, using the
// default tags and class attributes. It reports whether anything changed.
func SortText(ctx context.Context, text string, canon Canonicalizer) (string, bool, error) {
	p := NewProcessor(DefaultGrammar(), canon)
	out, plan, err := p.Rewrite(ctx, "", text)
	if err != nil {
		return text, false, err
	}
	return out, len(plan) > 0, nil
}
