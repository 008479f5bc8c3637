package clsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type CLIConfig struct {
	ConfigFile  string
	Check       bool
	Jobs        int
	Stylesheet  string
	Extensions  []string
	Markdown    bool
	Watch       bool
	Undo        bool
	Redo        bool
	History     bool
	NoCache     bool
	Nvim        string
	NoAnimation bool
	Verbose     bool
	Completion  string
}

var cfg = &CLIConfig{}

var (
	errFilesFailed  = errors.New("some files could not be processed")
	errWouldRewrite = errors.New("some files are not in canonical order")
)

var rootCmd = &cobra.Command{
	Use:   "clsort [path]",
	Short: "Sort utility class lists in ClojureScript templates.",
	Long: `Sort the classes of hiccup shorthand keywords (:div.flex.p-4) and
:class / :className strings into the canonical order given by prettier
with prettier-plugin-tailwindcss.

Example: clsort src/app
         pbpaste | clsort -`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Completion != "" {
			return handleCompletion(cmd)
		}
		if cfg.Undo && cfg.Redo {
			return fmt.Errorf("error: --undo and --redo are mutually exclusive")
		}

		conf, err := loadCLIConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := NewLogger(conf.Logging, os.Stderr)
		if err != nil {
			return fmt.Errorf("invalid logging config: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		root := conf.Root
		if len(args) > 0 {
			root = args[0]
		}
		return run(ctx, cmd, conf, root, logger)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + ConfigFileName + " to the current directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".", ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := DefaultConfig().Save("."); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func loadCLIConfig(cmd *cobra.Command) (*Config, error) {
	conf, err := LoadConfig(".", cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		conf.Jobs = cfg.Jobs
	}
	if flags.Changed("stylesheet") {
		conf.Prettier.Stylesheet = cfg.Stylesheet
	}
	if flags.Changed("extension") {
		conf.Extensions = NormalizeExtensions(cfg.Extensions)
	}
	if cfg.Markdown && !slices.Contains(conf.MarkdownExtensions, ".md") {
		conf.MarkdownExtensions = append(conf.MarkdownExtensions, ".md")
	}
	if cfg.History {
		conf.History.Enabled = true
	}
	if cfg.NoCache {
		conf.Cache.Enabled = false
	}
	if cfg.Verbose {
		conf.Logging.Level = "debug"
	}
	return conf, conf.Validate()
}

func run(ctx context.Context, cmd *cobra.Command, conf *Config, root string, logger *zap.Logger) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	opts := []AppOption{WithAppLogger(logger), WithCheckMode(cfg.Check)}

	if conf.History.Enabled || cfg.Undo || cfg.Redo {
		sm, err := NewStateManager(DefaultStateDir())
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer sm.Close()
		opts = append(opts, WithStateManager(sm))
	}

	addr := cfg.Nvim
	if addr == "" {
		addr = NvimAddress()
	}
	if addr != "" {
		if nm, err := NewNvimManager(addr); err != nil {
			logger.Debug("neovim not available", zap.Error(err))
		} else {
			defer nm.Close()
			opts = append(opts, WithNvim(nm))
		}
	}

	if cfg.Undo || cfg.Redo {
		app, err := NewApp(conf, nil, opts...)
		if err != nil {
			return err
		}
		var s Summary
		if cfg.Undo {
			s, err = app.Undo()
		} else {
			s, err = app.Redo()
		}
		if err != nil {
			return err
		}
		fmt.Fprint(out, FormatSummary(s))
		fmt.Fprint(errOut, FormatFailures(s))
		if len(s.Failed) > 0 {
			return errFilesFailed
		}
		return nil
	}

	canon, err := buildCanonicalizer(ctx, conf, logger)
	if err != nil {
		return err
	}
	app, err := NewApp(conf, canon, opts...)
	if err != nil {
		return err
	}

	if root == "-" {
		sp := NewSourceProvider()
		changed, err := app.SortSource(ctx, sp, func(text string, origin Origin) error {
			return sp.PutContent(out, text, origin)
		})
		if err != nil {
			return err
		}
		if changed && cfg.Check {
			return errWouldRewrite
		}
		return nil
	}

	if cfg.Watch {
		return watch(ctx, app, root, out, errOut)
	}

	noAnimation := cfg.NoAnimation || !isTerminal(os.Stdout)
	summary, err := NewTUI(app, noAnimation, out, errOut).Run(ctx, root)
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return errFilesFailed
	}
	if cfg.Check && len(summary.Modified) > 0 {
		return errWouldRewrite
	}
	return nil
}

func buildCanonicalizer(ctx context.Context, conf *Config, logger *zap.Logger) (Canonicalizer, error) {
	prettier := NewPrettier(conf.Prettier)
	ok, version := prettier.Available(ctx)
	if !ok {
		return nil, fmt.Errorf("prettier is not available; install prettier and %s", conf.Prettier.Plugin)
	}
	logger.Debug("using prettier", zap.String("version", version), zap.String("stylesheet", conf.Prettier.Stylesheet))

	if !conf.Cache.Enabled {
		return prettier, nil
	}

	var store *BlobStore
	if conf.Cache.Disk {
		s, err := NewBlobStore(filepath.Join(DefaultStateDir(), CacheDir))
		if err != nil {
			logger.Warn("disk cache disabled", zap.Error(err))
		} else {
			store = s
		}
	}
	return NewCache(prettier, store, CacheNamespace(version, conf.Prettier.Stylesheet), logger), nil
}

func watch(ctx context.Context, app *App, root string, out, errOut io.Writer) error {
	w, err := app.NewWatcher(root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	defer w.Close()

	fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Watching"), root)
	return w.Run(ctx, func(o FileOutcome) {
		switch {
		case o.Err != nil:
			fmt.Fprintf(errOut, "%s %s: %v\n", errorStyle.Render("Error processing"), RelativePath(o.Path), o.Err)
		case o.Modified:
			fmt.Fprintf(out, "%s %s\n", successStyle.Render("Modified:"), RelativePath(o.Path))
		}
	})
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

func handleCompletion(cmd *cobra.Command) error {
	switch cfg.Completion {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell for completion: %s", cfg.Completion)
	}
}

func init() {
	rootCmd.Flags().StringVar(&cfg.Completion, "completion", "", "Generate completion script")
	rootCmd.Flags().StringVarP(&cfg.ConfigFile, "config", "c", "", "Config file (default ./"+ConfigFileName+")")
	rootCmd.Flags().BoolVar(&cfg.Check, "check", false, "Report files that would change without writing")
	rootCmd.Flags().IntVarP(&cfg.Jobs, "jobs", "j", 1, "Files processed in parallel")
	rootCmd.Flags().StringVar(&cfg.Stylesheet, "stylesheet", "", "Tailwind stylesheet driving the order")
	rootCmd.Flags().StringSliceVarP(&cfg.Extensions, "extension", "e", []string{}, "Source extensions to scan")
	rootCmd.Flags().BoolVar(&cfg.Markdown, "markdown", false, "Also sort code blocks in .md files")
	rootCmd.Flags().BoolVarP(&cfg.Watch, "watch", "w", false, "Keep running and sort files as they change")
	rootCmd.Flags().BoolVarP(&cfg.Undo, "undo", "u", false, "Undo last run")
	rootCmd.Flags().BoolVarP(&cfg.Redo, "redo", "r", false, "Redo last undone run")
	rootCmd.Flags().BoolVar(&cfg.History, "history", false, "Record this run for --undo")
	rootCmd.Flags().BoolVar(&cfg.NoCache, "no-cache", false, "Call prettier for every class list")
	rootCmd.Flags().StringVar(&cfg.Nvim, "nvim", "", "Neovim socket to reload buffers in (default $NVIM)")
	rootCmd.Flags().BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable spinner")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func Execute() error {
	return rootCmd.Execute()
}
