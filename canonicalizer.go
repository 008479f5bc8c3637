package clsort

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Canonicalizer returns classes in their canonical order. Implementations must return a
// permutation of the input.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, classes []string) ([]string, error)
}

type CanonicalizerFunc func(ctx context.Context, classes []string) ([]string, error)

func (f CanonicalizerFunc) Canonicalize(ctx context.Context, classes []string) ([]string, error) {
	return f(ctx, classes)
}

// Gateway guards an oracle: every answer is checked to be a permutation of the question.
type Gateway struct {
	oracle Canonicalizer
}

func NewGateway(oracle Canonicalizer) *Gateway {
	return &Gateway{oracle: oracle}
}

func (g *Gateway) Order(ctx context.Context, classes []string) ([]string, error) {
	if len(classes) <= 1 {
		return classes, nil
	}

	ordered, err := g.oracle.Canonicalize(ctx, slices.Clone(classes))
	if err != nil {
		return nil, newError(KindOracle, fmt.Sprintf("canonicalize %q", strings.Join(classes, " ")), err)
	}
	if !IsPermutation(classes, ordered) {
		return nil, newError(KindOracle,
			fmt.Sprintf("canonicalize %q returned %q", strings.Join(classes, " "), strings.Join(ordered, " ")),
			ErrNotPermutation)
	}
	return ordered, nil
}

// IsPermutation reports whether a and b hold the same tokens with the same multiplicity.
func IsPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}
