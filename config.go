package clsort

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = ".clsort.yaml"
	DefaultRoot    = "src"
)

type Config struct {
	Root               string   `mapstructure:"root" yaml:"root"`
	Extensions         []string `mapstructure:"extensions" yaml:"extensions"`
	MarkdownExtensions []string `mapstructure:"markdownExtensions" yaml:"markdownExtensions"`
	Exclude            []string `mapstructure:"exclude" yaml:"exclude"`
	Tags               []string `mapstructure:"tags" yaml:"tags"`
	ClassAttributes    []string `mapstructure:"classAttributes" yaml:"classAttributes"`
	Jobs               int      `mapstructure:"jobs" yaml:"jobs"`

	Prettier PrettierConfig `mapstructure:"prettier" yaml:"prettier"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type PrettierConfig struct {
	Command        []string `mapstructure:"command" yaml:"command,omitempty"`
	Plugin         string   `mapstructure:"plugin" yaml:"plugin"`
	Stylesheet     string   `mapstructure:"stylesheet" yaml:"stylesheet"`
	Dir            string   `mapstructure:"dir" yaml:"dir,omitempty"`
	TimeoutSeconds int      `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Disk    bool `mapstructure:"disk" yaml:"disk"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type WatchConfig struct {
	DebounceMs int `mapstructure:"debounceMs" yaml:"debounceMs"`
}

type LoggingConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Level  string `mapstructure:"level" yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Root:               DefaultRoot,
		Extensions:         []string{".cljs"},
		MarkdownExtensions: []string{},
		Exclude:            append([]string{}, DefaultExclude...),
		Tags:               append([]string{}, DefaultTags...),
		ClassAttributes:    append([]string{}, DefaultClassAttributes...),
		Jobs:               1,
		Prettier: PrettierConfig{
			Plugin:         tailwindPlugin,
			Stylesheet:     "resources/public/css/main.css",
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Enabled: true,
			Disk:    false,
		},
		History: HistoryConfig{
			Enabled: false,
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("markdownExtensions", d.MarkdownExtensions)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("tags", d.Tags)
	v.SetDefault("classAttributes", d.ClassAttributes)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("prettier.command", d.Prettier.Command)
	v.SetDefault("prettier.plugin", d.Prettier.Plugin)
	v.SetDefault("prettier.stylesheet", d.Prettier.Stylesheet)
	v.SetDefault("prettier.dir", d.Prettier.Dir)
	v.SetDefault("prettier.timeoutSeconds", d.Prettier.TimeoutSeconds)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.disk", d.Cache.Disk)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// LoadConfig reads .clsort.yaml from dir, or the file at explicit when it is set.
// A missing implicit config yields the defaults. CLSORT_* environment variables
// override file values, e.g. CLSORT_PRETTIER_STYLESHEET.
func LoadConfig(dir, explicit string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("CLSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Extensions = NormalizeExtensions(cfg.Extensions)
	cfg.MarkdownExtensions = NormalizeExtensions(cfg.MarkdownExtensions)
	return &cfg, nil
}

// Save writes the configuration to dir/.clsort.yaml.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644)
}

func (c *Config) Validate() error {
	if len(c.Extensions) == 0 && len(c.MarkdownExtensions) == 0 {
		return &ConfigError{Field: "extensions", Message: "at least one extension is required"}
	}
	if len(c.Tags) == 0 && len(c.ClassAttributes) == 0 {
		return &ConfigError{Field: "tags", Message: "no tags or class attributes to match"}
	}
	if c.Jobs < 1 {
		return &ConfigError{Field: "jobs", Message: "must be at least 1"}
	}
	if c.Prettier.TimeoutSeconds < 0 {
		return &ConfigError{Field: "prettier.timeoutSeconds", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ScanExtensions is every extension the walker should collect.
func (c *Config) ScanExtensions() []string {
	return append(append([]string{}, c.Extensions...), c.MarkdownExtensions...)
}

type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
