package clsort

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// orderOracle sorts classes by their index in order; unknown classes go last in
// alphabetical order. Its output is a fixed point of itself.
func orderOracle(order ...string) CanonicalizerFunc {
	rank := make(map[string]int, len(order))
	for i, c := range order {
		rank[c] = i
	}
	return func(_ context.Context, classes []string) ([]string, error) {
		out := slices.Clone(classes)
		sort.SliceStable(out, func(i, j int) bool {
			ri, okI := rank[out[i]]
			rj, okJ := rank[out[j]]
			switch {
			case okI && okJ:
				return ri < rj
			case okI != okJ:
				return okI
			default:
				return out[i] < out[j]
			}
		})
		return out, nil
	}
}

var errBoom = errors.New("boom")

// failingOracle fails for any list containing the class "boom".
func failingOracle(next Canonicalizer) CanonicalizerFunc {
	return func(ctx context.Context, classes []string) ([]string, error) {
		if slices.Contains(classes, "boom") {
			return nil, errBoom
		}
		return next.Canonicalize(ctx, classes)
	}
}

type countingOracle struct {
	next Canonicalizer

	mu    sync.Mutex
	calls []string
}

func (c *countingOracle) Canonicalize(ctx context.Context, classes []string) ([]string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, strings.Join(classes, " "))
	c.mu.Unlock()
	return c.next.Canonicalize(ctx, classes)
}

func (c *countingOracle) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testConfig() *Config {
	c := DefaultConfig()
	c.Watch.DebounceMs = 20
	return c
}
