package clsort

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestApp(t *testing.T, cfg *Config, canon Canonicalizer, opts ...AppOption) *App {
	t.Helper()
	app, err := NewApp(cfg, canon, opts...)
	require.NoError(t, err)
	return app
}

func TestAppRunSummary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.b.a]`)
	writeFile(t, filepath.Join(root, "b.cljs"), `[:div.a.b]`)
	writeFile(t, filepath.Join(root, "nested", "c.cljs"), `{:class "d c"}`)
	writeFile(t, filepath.Join(root, "ignored.txt"), `[:div.b.a]`)

	app := newTestApp(t, testConfig(), orderOracle())
	s, err := app.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Scanned)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.cljs"),
		filepath.Join(root, "nested", "c.cljs"),
	}, s.Modified)
	assert.Empty(t, s.Failed)
	assert.Equal(t, `[:div.b.a]`, readFile(t, filepath.Join(root, "ignored.txt")))
}

func TestAppRunContinuesAfterFailure(t *testing.T) {
	root := t.TempDir()
	bad := `[:div.boom.flex] [:p.b.a]`
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.b.a]`)
	writeFile(t, filepath.Join(root, "b.cljs"), bad)
	writeFile(t, filepath.Join(root, "c.cljs"), `[:span.d.c]`)

	app := newTestApp(t, testConfig(), failingOracle(orderOracle()))
	s, err := app.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Scanned)
	assert.Len(t, s.Modified, 2)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, filepath.Join(root, "b.cljs"), s.Failed[0].Path)
	assert.Equal(t, KindOracle, KindOf(s.Failed[0].Err))

	assert.Equal(t, bad, readFile(t, filepath.Join(root, "b.cljs")))
	assert.Equal(t, `[:div.a.b]`, readFile(t, filepath.Join(root, "a.cljs")))
	assert.Equal(t, `[:span.c.d]`, readFile(t, filepath.Join(root, "c.cljs")))
}

func TestAppRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.flex.p-4 {:className "mt-2 flex"}]`)

	path := filepath.Join(root, "a.cljs")
	app := newTestApp(t, testConfig(), orderOracle("p-4", "mt-2", "flex"))
	first, err := app.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, first.Modified, 1)
	sorted := readFile(t, path)
	assert.Equal(t, `[:div.p-4.flex {:className "mt-2 flex"}]`, sorted)

	second, err := app.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, second.Modified)
	assert.Equal(t, 1, second.Scanned)
	assert.Equal(t, sorted, readFile(t, path))
}

func TestAppRunReportsUnreadableDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.b.a]`)
	writeFile(t, filepath.Join(root, "locked", "b.cljs"), `[:div.b.a]`)
	lockDir(t, filepath.Join(root, "locked"))

	app := newTestApp(t, testConfig(), orderOracle())
	s, err := app.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Scanned)
	assert.Equal(t, []string{filepath.Join(root, "a.cljs")}, s.Modified)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, filepath.Join(root, "locked"), s.Failed[0].Path)
	assert.Equal(t, `[:div.a.b]`, readFile(t, filepath.Join(root, "a.cljs")))
}

func TestAppRunParallel(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		writeFile(t, filepath.Join(root, name+".cljs"), `[:div.z.y.x] {:class "q p"}`)
	}

	cfg := testConfig()
	cfg.Jobs = 4
	oracle := &countingOracle{next: orderOracle()}
	app := newTestApp(t, cfg, oracle)

	var mu sync.Mutex
	var updates []int
	app.SetProgressCallback(func(cur, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 8, total)
		updates = append(updates, cur)
	})

	s, err := app.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, s.Modified, 8)
	assert.Equal(t, 16, oracle.count())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, updates)
	for _, name := range []string{"a", "h"} {
		assert.Equal(t, `[:div.x.y.z] {:class "p q"}`, readFile(t, filepath.Join(root, name+".cljs")))
	}
}

func TestAppCheckMode(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.cljs")
	writeFile(t, path, `[:div.b.a]`)

	app := newTestApp(t, testConfig(), orderOracle(), WithCheckMode(true))
	s, err := app.Run(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, s.Check)
	assert.Equal(t, []string{path}, s.Modified)
	assert.Equal(t, `[:div.b.a]`, readFile(t, path))
}

func TestAppRunCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.b.a]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := newTestApp(t, testConfig(), orderOracle())
	_, err := app.Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, `[:div.b.a]`, readFile(t, filepath.Join(root, "a.cljs")))
}

func TestAppRecoversPanics(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cljs"), `[:div.b.a]`)

	app := newTestApp(t, testConfig(), CanonicalizerFunc(func(context.Context, []string) ([]string, error) {
		panic("oracle exploded")
	}))
	_, err := app.Run(context.Background(), root)
	require.Error(t, err)

	var detailed *DetailedError
	require.ErrorAs(t, err, &detailed)
	assert.Contains(t, detailed.Error(), "oracle exploded")
	assert.NotEmpty(t, detailed.Stack)
}

func TestAppUndoRedo(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.cljs")
	writeFile(t, path, `[:div.b.a]`)

	sm, err := NewStateManager(filepath.Join(t.TempDir(), ".clsort"))
	require.NoError(t, err)
	defer sm.Close()

	app := newTestApp(t, testConfig(), orderOracle(), WithStateManager(sm))
	_, err = app.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, `[:div.a.b]`, readFile(t, path))

	s, err := app.Undo()
	require.NoError(t, err)
	assert.Equal(t, "Undone", s.Message)
	assert.Equal(t, `[:div.b.a]`, readFile(t, path))

	s, err = app.Redo()
	require.NoError(t, err)
	assert.Equal(t, "Redone", s.Message)
	assert.Equal(t, `[:div.a.b]`, readFile(t, path))
}

func TestAppUndoWithoutHistory(t *testing.T) {
	app := newTestApp(t, testConfig(), orderOracle())
	_, err := app.Undo()
	assert.Error(t, err)
}

func TestNewAppValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Jobs = 0
	_, err := NewApp(cfg, orderOracle())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "jobs", cerr.Field)
}
