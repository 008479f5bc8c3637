package clsort

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var codeBlockLangs = map[string]struct{}{
	"clojure":       {},
	"clojurescript": {},
	"cljs":          {},
	"clj":           {},
	"edn":           {},
	"hiccup":        {},
}

// CodeRegions returns the byte ranges of the fenced Clojure code blocks in a Markdown
// document. Adjacent lines of one block are merged.
func CodeRegions(source []byte) ([]Region, error) {
	var regions []Region
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		block, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if _, ok := codeBlockLangs[strings.ToLower(string(block.Language(source)))]; !ok {
			return ast.WalkSkipChildren, nil
		}

		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if n := len(regions); n > 0 && regions[n-1].Stop == seg.Start {
				regions[n-1].Stop = seg.Stop
				continue
			}
			regions = append(regions, Region{Start: seg.Start, Stop: seg.Stop})
		}
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return regions, nil
}
