package clsort

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePrettier writes a shell script standing in for the prettier CLI.
func fakePrettier(t *testing.T, body string) PrettierConfig {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := filepath.Join(t.TempDir(), "prettier.sh")
	content := "if [ \"$1\" = \"--version\" ]; then echo 3.3.3; exit 0; fi\n" + body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return PrettierConfig{Command: []string{"sh", script}, TimeoutSeconds: 1}
}

func TestPrettierAvailable(t *testing.T) {
	p := NewPrettier(fakePrettier(t, "cat"))
	ok, version := p.Available(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "3.3.3", version)

	missing := NewPrettier(PrettierConfig{Command: []string{filepath.Join(t.TempDir(), "missing")}})
	ok, _ = missing.Available(context.Background())
	assert.False(t, ok)
}

func TestPrettierCanonicalize(t *testing.T) {
	p := NewPrettier(fakePrettier(t, `printf '<div\n  class="flex p-4"\n></div>\n'`))
	got, err := p.Canonicalize(context.Background(), []string{"p-4", "flex"})
	require.NoError(t, err)
	assert.Equal(t, []string{"flex", "p-4"}, got)
}

func TestPrettierEscapesClasses(t *testing.T) {
	p := NewPrettier(fakePrettier(t, "cat"))
	classes := []string{`[&>*]:p-4`, `after:content-['"']`, "flex"}
	got, err := p.Canonicalize(context.Background(), classes)
	require.NoError(t, err)
	assert.Equal(t, classes, got)
}

func TestPrettierPassesPluginArguments(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	cfg := fakePrettier(t, `echo "$@" > `+argsFile+`; cat`)
	cfg.Stylesheet = "css/main.css"

	_, err := NewPrettier(cfg).Canonicalize(context.Background(), []string{"b", "a"})
	require.NoError(t, err)

	args := strings.TrimSpace(readFile(t, argsFile))
	assert.Equal(t, "--parser html --plugin prettier-plugin-tailwindcss --tailwind-preserve-duplicates --tailwind-stylesheet css/main.css", args)
}

func TestPrettierFailure(t *testing.T) {
	p := NewPrettier(fakePrettier(t, "echo 'cannot load stylesheet' >&2; exit 2"))
	_, err := p.Canonicalize(context.Background(), []string{"b", "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 2")
	assert.Contains(t, err.Error(), "cannot load stylesheet")
}

func TestPrettierTimeout(t *testing.T) {
	p := NewPrettier(fakePrettier(t, "exec sleep 5"))
	_, err := p.Canonicalize(context.Background(), []string{"b", "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestPrettierThroughGateway(t *testing.T) {
	// A formatter that drops a class must never reach the file.
	gw := NewGateway(NewPrettier(fakePrettier(t, `printf '<div class="flex"></div>'`)))
	_, err := gw.Order(context.Background(), []string{"p-4", "flex"})
	assert.ErrorIs(t, err, ErrNotPermutation)
}

func TestExtractClassList(t *testing.T) {
	got, err := ExtractClassList("<div class=\"  a\n b \"></div>\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = ExtractClassList(`<div class="a &amp; b"></div>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "&", "b"}, got)

	_, err = ExtractClassList(`<div id="x"></div>`)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "3.3.3", parseVersion("3.3.3\n"))
	assert.Equal(t, "3.3.3", parseVersion("v3.3.3"))
	assert.Equal(t, "nightly", parseVersion(" nightly \n"))
}

func TestNewPrettierDefaults(t *testing.T) {
	p := NewPrettier(PrettierConfig{})
	assert.Equal(t, tailwindPlugin, p.plugin)
	assert.Equal(t, defaultTimeout, p.timeout)
	assert.NotContains(t, p.args(), "--tailwind-stylesheet")
}
