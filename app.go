package clsort

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ProgressUpdate func(current, total int)

type App struct {
	cfg              *Config
	processor        *Processor
	stateManager     *StateManager
	nvim             *NvimManager
	logger           *zap.Logger
	progressCallback ProgressUpdate
	check            bool
}

type AppOption func(*App)

func WithStateManager(sm *StateManager) AppOption {
	return func(a *App) { a.stateManager = sm }
}

func WithNvim(m *NvimManager) AppOption {
	return func(a *App) { a.nvim = m }
}

func WithCheckMode(check bool) AppOption {
	return func(a *App) { a.check = check }
}

func WithAppLogger(logger *zap.Logger) AppOption {
	return func(a *App) { a.logger = logger }
}

func NewApp(cfg *Config, canon Canonicalizer, opts ...AppOption) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.processor = NewProcessor(
		NewGrammar(cfg.Tags, cfg.ClassAttributes),
		canon,
		WithMarkdown(cfg.MarkdownExtensions),
		WithCheck(a.check),
		WithLogger(a.logger),
	)
	return a, nil
}

func (a *App) SetProgressCallback(cb ProgressUpdate) { a.progressCallback = cb }

// Run processes every file under root. Failures are collected per file and never stop
// the batch; the returned error is reserved for failures of the run itself.
func (a *App) Run(ctx context.Context, root string) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()

	files, unreadable, err := Collect(root, a.cfg.ScanExtensions(), a.cfg.Exclude)
	if err != nil {
		return Summary{}, err
	}
	for _, f := range unreadable {
		a.logger.Warn("skipping directory", zap.String("path", f.Path), zap.Error(f.Err))
	}
	a.logger.Debug("collected files", zap.String("root", root), zap.Int("files", len(files)))

	outcomes, err := a.processAll(ctx, files)
	if err != nil {
		return Summary{}, err
	}

	summary = a.summarize(outcomes)
	summary.Failed = append(unreadable, summary.Failed...)
	if a.check {
		return summary, nil
	}

	if a.stateManager != nil {
		if err := a.stateManager.Record(outcomes); err != nil {
			a.logger.Warn("failed to record history", zap.Error(err))
		}
	}
	a.reloadBuffers(summary.Modified)
	return summary, nil
}

func (a *App) processAll(ctx context.Context, files []string) ([]FileOutcome, error) {
	outcomes := make([]FileOutcome, len(files))
	total := len(files)

	var mu sync.Mutex
	done := 0
	a.reportProgress(0, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Jobs, 1))
	for i, f := range files {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &DetailedError{Err: fmt.Errorf("panic processing %s: %v", f, r), Stack: debug.Stack()}
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.processOne(gctx, f)

			mu.Lock()
			done++
			a.reportProgress(done, total)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (a *App) processOne(ctx context.Context, path string) FileOutcome {
	outcome, err := a.processor.Process(ctx, path)
	if err != nil {
		outcome.Err = err
		a.logger.Debug("file failed", zap.String("path", path), zap.String("kind", string(KindOf(err))), zap.Error(err))
		return outcome
	}
	if outcome.Modified {
		a.logger.Info("file rewritten", zap.String("path", path), zap.Int("replacements", outcome.Replacements))
	}
	return outcome
}

func (a *App) summarize(outcomes []FileOutcome) Summary {
	s := Summary{Scanned: len(outcomes), Check: a.check}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed = append(s.Failed, FileFailure{Path: o.Path, Err: o.Err})
		case o.Modified:
			s.Modified = append(s.Modified, o.Path)
		}
	}
	return s
}

func (a *App) reloadBuffers(paths []string) {
	if a.nvim == nil || len(paths) == 0 {
		return
	}
	reloaded, failed := a.nvim.Reload(paths)
	a.logger.Debug("reloaded neovim buffers", zap.Int("reloaded", len(reloaded)), zap.Strings("failed", failed))
}

func (a *App) Undo() (Summary, error) {
	if a.stateManager == nil {
		return Summary{}, fmt.Errorf("history is not enabled")
	}
	s, err := a.stateManager.Undo()
	a.reloadBuffers(s.Modified)
	return s, err
}

func (a *App) Redo() (Summary, error) {
	if a.stateManager == nil {
		return Summary{}, fmt.Errorf("history is not enabled")
	}
	s, err := a.stateManager.Redo()
	a.reloadBuffers(s.Modified)
	return s, err
}

// SortSource sorts text from the source provider and hands the result back to it.
func (a *App) SortSource(ctx context.Context, sp *SourceProvider, out func(string, Origin) error) (bool, error) {
	text, origin, err := sp.GetContent()
	if err != nil {
		return false, fmt.Errorf("failed to read source: %w", err)
	}
	sorted, plan, err := a.processor.Rewrite(ctx, "", text)
	if err != nil {
		return false, err
	}
	if err := out(sorted, origin); err != nil {
		return false, err
	}
	return len(plan) > 0, nil
}

func (a *App) reportProgress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// RelativePath renders p relative to the working directory when possible.
func RelativePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	wd, err := filepath.Abs(".")
	if err != nil {
		return p
	}
	if r, err := filepath.Rel(wd, abs); err == nil {
		return r
	}
	return p
}
