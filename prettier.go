package clsort

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	tailwindPlugin = "prettier-plugin-tailwindcss"
	defaultTimeout = 30 * time.Second
)

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// Prettier asks the prettier CLI with the tailwind plugin for the canonical order of a
// class list. Each call formats a minimal <div class="..."></div> fragment.
type Prettier struct {
	command    []string
	stylesheet string
	plugin     string
	dir        string
	timeout    time.Duration
}

func NewPrettier(cfg PrettierConfig) *Prettier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	plugin := cfg.Plugin
	if plugin == "" {
		plugin = tailwindPlugin
	}
	return &Prettier{
		command:    cfg.Command,
		stylesheet: cfg.Stylesheet,
		plugin:     plugin,
		dir:        cfg.Dir,
		timeout:    timeout,
	}
}

// resolve returns the program and leading arguments used to start prettier.
func (p *Prettier) resolve() (string, []string, error) {
	if len(p.command) > 0 {
		return p.command[0], p.command[1:], nil
	}
	local := filepath.Join(p.dir, "node_modules", ".bin", "prettier")
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, nil, nil
	}
	bin, err := exec.LookPath("prettier")
	if err != nil {
		return "", nil, fmt.Errorf("prettier not found in node_modules/.bin or PATH: %w", err)
	}
	return bin, nil, nil
}

// Available reports whether prettier can be started and which version it is.
func (p *Prettier) Available(ctx context.Context) (bool, string) {
	bin, args, err := p.resolve()
	if err != nil {
		return false, ""
	}

	versionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(versionCtx, bin, slices.Concat(args, []string{"--version"})...)
	cmd.Dir = p.dir
	out, err := cmd.Output()
	if err != nil {
		return false, ""
	}
	return true, parseVersion(string(out))
}

func (p *Prettier) args() []string {
	args := []string{"--parser", "html", "--plugin", p.plugin, "--tailwind-preserve-duplicates"}
	if p.stylesheet != "" {
		args = append(args, "--tailwind-stylesheet", p.stylesheet)
	}
	return args
}

func (p *Prettier) Canonicalize(ctx context.Context, classes []string) ([]string, error) {
	bin, lead, err := p.resolve()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fragment := `<div class="` + html.EscapeString(strings.Join(classes, " ")) + `"></div>`

	cmd := exec.CommandContext(ctx, bin, slices.Concat(lead, p.args())...)
	cmd.Dir = p.dir
	cmd.Stdin = strings.NewReader(fragment)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("prettier timed out after %s", p.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("prettier failed with exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("prettier failed: %w", err)
	}

	return ExtractClassList(stdout.String())
}

// ExtractClassList returns the tokens of the first class attribute in an HTML fragment.
func ExtractClassList(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prettier output: %w", err)
	}

	var found *string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			for i := range n.Attr {
				if n.Attr[i].Key == "class" {
					found = &n.Attr[i].Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found == nil {
		return nil, fmt.Errorf("no class attribute in prettier output %q", strings.TrimSpace(fragment))
	}
	return strings.Fields(*found), nil
}

func parseVersion(output string) string {
	if m := versionPattern.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	return strings.TrimSpace(output)
}
