package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/dired/internal/config"
	"github.com/stackvity/dired/internal/engine"
	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/notify"
	"github.com/stackvity/dired/internal/reconcile"
	"github.com/stackvity/dired/internal/snapshot"
)

// Variables for version embedding via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes defined for clarity
const (
	ExitCodeSuccess      = 0
	ExitCodeRenameErrors = 1
	ExitCodeConfigError  = 2
	ExitCodeInterrupt    = 3
	ExitCodeInputError   = 4
	ExitCodeUnknown      = 10
)

var (
	opts   *config.Options
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dired",
	Short: "Render a directory as an editable text listing and write edits back",
	Long: `Dired renders a filesystem directory as a fixed-column text listing,
lets you rename files by editing the filename column, and reconciles the
edited text back onto the real filesystem as rename operations.

Listings are cached per directory and validated against the directory's
modification time; watch mode keeps a rendering up to date as the
directory changes.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error unmarshalling configuration: %v\n", err)
			os.Exit(ExitCodeConfigError)
			return nil // Unreachable
		}

		if err := opts.ValidateConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(ExitCodeConfigError)
			return nil
		}

		logLevel := slog.LevelInfo
		if opts.Verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		logger.Debug("Configuration loaded and validated", "options", *opts)
		return nil
	},
}

// newEngine composes the engine against the real filesystem and OS identity
// database.
func newEngine() *engine.Engine {
	return engine.NewEngine(opts, filesystem.NewRealFileSystem(), snapshot.NewOSIdentityResolver(), logger)
}

func reportWarnings(warnings []snapshot.Warning) {
	for _, w := range warnings {
		logger.Warn("Entry skipped during listing", "name", w.Name, "error", w.Err)
	}
}

var renderRows bool

var renderCmd = &cobra.Command{
	Use:   "render <directory>",
	Short: "Print the listing text for a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		directory := args[0]

		if renderRows {
			rows, warnings := eng.Rows(directory)
			reportWarnings(warnings)
			out, err := yaml.Marshal(rows)
			if err != nil {
				return fmt.Errorf("failed to marshal rows: %w", err)
			}
			fmt.Fprint(os.Stdout, string(out))
			return nil
		}

		text, warnings := eng.Render(directory)
		reportWarnings(warnings)
		fmt.Fprint(os.Stdout, text)
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <directory> <old-listing-file> <new-listing-file>",
	Short: "Reconcile an edited listing back onto the filesystem",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		directory := args[0]

		oldText, err := os.ReadFile(args[1])
		if err != nil {
			logger.Error("Failed to read previous listing", "file", args[1], "error", err)
			os.Exit(ExitCodeInputError)
			return nil
		}
		newText, err := os.ReadFile(args[2])
		if err != nil {
			logger.Error("Failed to read edited listing", "file", args[2], "error", err)
			os.Exit(ExitCodeInputError)
			return nil
		}

		results, err := eng.Reconcile(directory, string(oldText), string(newText))
		if err != nil {
			logger.Error("Reconciliation failed", "dir", directory, "error", err)
			os.Exit(ExitCodeInputError)
			return nil
		}

		failed := 0
		for _, res := range results {
			switch res.Status {
			case reconcile.StatusRenamed:
				fmt.Fprintf(os.Stdout, "renamed %s -> %s\n", res.From, res.To)
			case reconcile.StatusFailed:
				failed++
				fmt.Fprintf(os.Stdout, "FAILED  %s -> %s: %v\n", res.From, res.To, res.Err)
			}
		}
		fmt.Fprintf(os.Stdout, "%d rename(s), %d failed\n", len(results), failed)

		if failed > 0 {
			os.Exit(ExitCodeRenameErrors)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Render a directory and keep re-rendering as it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng := newEngine()
		directory := args[0]

		text, warnings := eng.Render(directory)
		reportWarnings(warnings)
		fmt.Fprint(os.Stdout, text)

		notifier, err := notify.New(opts.Debounce, func(dir string) {
			eng.Invalidate(dir)
			refreshed, refreshWarnings := eng.Render(dir)
			reportWarnings(refreshWarnings)
			fmt.Fprint(os.Stdout, "\n"+refreshed)
		}, logger)
		if err != nil {
			// No watch means no automatic refresh; the rendering above
			// still stands.
			logger.Warn("Could not establish filesystem watch, auto-refresh disabled", "error", err)
			<-ctx.Done()
			return nil
		}
		defer notifier.Close()

		if err := notifier.Watch(directory); err != nil {
			logger.Warn("Could not watch directory, auto-refresh disabled", "dir", directory, "error", err)
		} else {
			logger.Info("Watching for changes...", "dir", directory, "debounce", opts.Debounce)
		}

		<-ctx.Done()
		logger.Info("Interrupted, exiting watch mode.")
		return nil
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(ExitCodeUnknown)
	}
}

func init() {
	opts = &config.Options{}
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file path (default: .dired.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().Bool("show-dotfiles", true, "Include entries starting with '.' (the synthetic . and .. rows always appear)")
	rootCmd.PersistentFlags().Bool("show-meta-files", true, "Include entries whose name ends in .meta")
	rootCmd.PersistentFlags().Int("max-entries", config.DefaultMaxEntries, "Maximum rows per directory listing")
	rootCmd.PersistentFlags().Int("max-cached-dirs", config.DefaultMaxCachedDirs, "Maximum directories kept in the listing cache")
	rootCmd.PersistentFlags().Duration("debounce", config.DefaultDebounce, "Quiet period after the last filesystem event before a refresh")

	renderCmd.Flags().BoolVar(&renderRows, "rows", false, "Print decoded rows as YAML instead of the listing text")

	rootCmd.AddCommand(renderCmd, applyCmd, watchCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("dired version %s (commit: %s, built: %s)\n", version, commit, date))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("showDotfiles", true)
	viper.SetDefault("showMetaFiles", true)
	viper.SetDefault("maxEntries", config.DefaultMaxEntries)
	viper.SetDefault("maxCachedDirs", config.DefaultMaxCachedDirs)
	viper.SetDefault("debounce", config.DefaultDebounce.String())

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DIRED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if opts.ConfigFile != "" {
		viper.SetConfigFile(opts.ConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading specified config file %s: %v\n", opts.ConfigFile, err)
			os.Exit(ExitCodeConfigError)
		}
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".dired")
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			// A missing default config file is fine; anything else is not.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", viper.ConfigFileUsed(), err)
				os.Exit(ExitCodeConfigError)
			}
		}
	}

	// Flags take highest precedence; bind each to its config key explicitly
	// since the flag names are dashed and the keys are camelCase.
	bindings := map[string]string{
		"showDotfiles":  "show-dotfiles",
		"showMetaFiles": "show-meta-files",
		"maxEntries":    "max-entries",
		"maxCachedDirs": "max-cached-dirs",
		"debounce":      "debounce",
		"verbose":       "verbose",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Internal error binding flag %s: %v\n", flag, err)
			os.Exit(ExitCodeConfigError)
		}
	}
}

func main() {
	Execute()
}
