package clsort

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Processor struct {
	grammar  *Grammar
	gateway  *Gateway
	markdown []string
	check    bool
	logger   *zap.Logger
}

type ProcessorOption func(*Processor)

// WithMarkdown makes files with these extensions be scanned only inside their fenced
// Clojure code blocks.
func WithMarkdown(extensions []string) ProcessorOption {
	return func(p *Processor) { p.markdown = extensions }
}

// WithCheck reports the files that would change without writing them.
func WithCheck(check bool) ProcessorOption {
	return func(p *Processor) { p.check = check }
}

func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

func NewProcessor(grammar *Grammar, canon Canonicalizer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		grammar: grammar,
		gateway: NewGateway(canon),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rewrite returns text with every candidate span in canonical order, together with the
// replacements that were applied. path only selects the scan mode and labels errors.
func (p *Processor) Rewrite(ctx context.Context, path, text string) (string, []Replacement, error) {
	regions := []Region{{Start: 0, Stop: len(text)}}
	if len(p.markdown) > 0 && HasAllowedExtension(path, p.markdown) {
		r, err := CodeRegions([]byte(text))
		if err != nil {
			return "", nil, withPath(newError(KindMalformed, "cannot parse markdown", err), path)
		}
		regions = r
	}

	spans, err := p.grammar.ScanRegions(text, regions)
	if err != nil {
		return "", nil, withPath(err, path)
	}

	plan, err := BuildPlan(ctx, p.gateway, text, spans)
	if err != nil {
		return "", nil, withPath(err, path)
	}
	if len(plan) == 0 {
		return text, nil, nil
	}

	out, err := ApplyPlan(text, plan)
	if err != nil {
		return "", nil, withPath(err, path)
	}
	p.logger.Debug("planned rewrite",
		zap.String("path", path),
		zap.Int("spans", len(spans)),
		zap.Int("replacements", len(plan)))
	return out, plan, nil
}

// Process rewrites one file in place. The file is written at most once, and only when
// at least one span changed; any failure leaves it untouched.
func (p *Processor) Process(ctx context.Context, path string) (FileOutcome, error) {
	outcome := FileOutcome{Path: path}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return outcome, withPath(newError(KindIO, "cannot resolve file", err), path)
	}
	outcome.Target = target
	info, err := os.Stat(target)
	if err != nil {
		return outcome, withPath(newError(KindIO, "cannot stat file", err), path)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		return outcome, withPath(newError(KindIO, "cannot read file", err), path)
	}

	rewritten, plan, err := p.Rewrite(ctx, path, string(content))
	if err != nil {
		return outcome, err
	}
	if len(plan) == 0 || rewritten == string(content) {
		return outcome, nil
	}

	outcome.Modified = true
	outcome.Replacements = len(plan)
	outcome.before = content
	outcome.after = []byte(rewritten)
	if p.check {
		return outcome, nil
	}

	if err := WriteFileAtomic(target, outcome.after, info.Mode().Perm()); err != nil {
		outcome.Modified = false
		return outcome, withPath(newError(KindIO, fmt.Sprintf("cannot write %d replacements", len(plan)), err), path)
	}
	return outcome, nil
}
