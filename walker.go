package clsort

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var DefaultExclude = []string{"node_modules"}

// Collect returns the files to process under root. A file root is returned as is; a
// directory is walked depth-first in name order, skipping hidden and excluded
// directories and keeping regular files with one of the extensions. Subdirectories that
// cannot be read are returned as failures and the walk goes on; only an unreadable root
// is an error.
func Collect(root string, extensions, exclude []string) ([]string, []FileFailure, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot access '%s': %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read directory '%s': %w", root, err)
	}

	w := &walk{extensions: extensions, skip: make(map[string]struct{}, len(exclude))}
	for _, e := range exclude {
		w.skip[e] = struct{}{}
	}
	w.visit(root, entries)
	return w.files, w.failed, nil
}

type walk struct {
	extensions []string
	skip       map[string]struct{}
	files      []string
	failed     []FileFailure
}

func (w *walk) visit(dir string, entries []os.DirEntry) {
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		switch {
		case entry.IsDir():
			if isHidden(name) {
				continue
			}
			if _, ok := w.skip[name]; ok {
				continue
			}
			children, err := os.ReadDir(full)
			if err != nil {
				w.failed = append(w.failed, FileFailure{Path: full, Err: withPath(newError(KindIO, "cannot read directory", err), full)})
				continue
			}
			w.visit(full, children)
		case entry.Type().IsRegular() && len(w.extensions) > 0 && HasAllowedExtension(name, w.extensions):
			w.files = append(w.files, full)
		}
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func HasAllowedExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		if strings.HasSuffix(path, e) {
			return true
		}
	}
	return false
}

// NormalizeExtensions prefixes every extension with a dot.
func NormalizeExtensions(extensions []string) []string {
	out := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
