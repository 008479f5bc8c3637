package clsort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultRoot, cfg.Root)
	assert.Equal(t, []string{".cljs"}, cfg.Extensions)
	assert.Equal(t, DefaultTags, cfg.Tags)
	assert.Equal(t, DefaultClassAttributes, cfg.ClassAttributes)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Equal(t, tailwindPlugin, cfg.Prettier.Plugin)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.History.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), `
root: app
extensions: [cljs, cljc]
markdownExtensions: [md]
jobs: 4
tags: [div, view]
prettier:
  stylesheet: styles/app.css
  command: [npx, prettier]
cache:
  disk: true
logging:
  format: json
  level: debug
`)

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Root)
	assert.Equal(t, []string{".cljs", ".cljc"}, cfg.Extensions)
	assert.Equal(t, []string{".md"}, cfg.MarkdownExtensions)
	assert.Equal(t, []string{".cljs", ".cljc", ".md"}, cfg.ScanExtensions())
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, []string{"div", "view"}, cfg.Tags)
	assert.Equal(t, "styles/app.css", cfg.Prettier.Stylesheet)
	assert.Equal(t, []string{"npx", "prettier"}, cfg.Prettier.Command)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.Disk)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CLSORT_PRETTIER_STYLESHEET", "from/env.css")
	t.Setenv("CLSORT_JOBS", "3")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "from/env.css", cfg.Prettier.Stylesheet)
	assert.Equal(t, 3, cfg.Jobs)
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Jobs = 6
	cfg.Exclude = []string{"node_modules", "target"}
	require.NoError(t, cfg.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "jobs: 6")

	loaded, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Jobs)
	assert.Equal(t, cfg.Exclude, loaded.Exclude)
	assert.Equal(t, cfg.Prettier.Stylesheet, loaded.Prettier.Stylesheet)
	assert.Equal(t, cfg.Watch.DebounceMs, loaded.Watch.DebounceMs)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extensions"},
		{"nothing to match", func(c *Config) { c.Tags, c.ClassAttributes = nil, nil }, "tags"},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, "jobs"},
		{"negative timeout", func(c *Config) { c.Prettier.TimeoutSeconds = -1 }, "prettier.timeoutSeconds"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
