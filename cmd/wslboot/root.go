package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/wslboot/internal/adapters/logging"
	"github.com/felixgeelhaar/wslboot/internal/app"
	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	jsonOut   bool
	logFormat string
	logLevel  string

	installFlag bool
	verifyFlag  bool
)

// errIncomplete is returned after a report that did not end complete has
// been printed.
var errIncomplete = errors.New("provisioning did not complete")

var rootCmd = &cobra.Command{
	Use:   "wslboot",
	Short: "Bootstrap a WSL development environment on Windows",
	Long: `wslboot provisions a Windows machine for App Engine development inside WSL.

It enables the Windows Subsystem for Linux, installs a distribution,
sets up Miniconda with Python 2.7 and 3.11 environments, creates the local
datastore, updates the shell startup file and installs the Google Cloud CLI.

Every step is checked first and only installed when missing, so wslboot
can be run again at any time.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
	RunE:          runRoot,
}

type bootClient interface {
	Run(context.Context, *config.Config, app.Options) ([]*sequence.Report, error)
	PrintReport(*sequence.Report)
	PrintJSON([]*sequence.Report) error
}

var newWSLBoot = func(out io.Writer, logger ports.Logger) bootClient {
	return app.New(out).WithLogger(logger)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVar(&installFlag, "install", false, "install every missing component")
	rootCmd.Flags().BoolVar(&verifyFlag, "verify", false, "check every component without changing anything")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: wslboot.yaml, wslboot.yml or wslboot.toml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print reports as JSON")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	opts := app.Options{Install: installFlag, Verify: verifyFlag}
	out := cmd.OutOrStdout()
	if opts.Empty() {
		printWelcome(out)
		return nil
	}

	host := platform.Detect()
	if !host.CanProvision() {
		return config.NewUnsupportedHostError(host.String(), host.IsWSL())
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boot := newWSLBoot(out, logger)
	reports, err := boot.Run(ctx, cfg, opts)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := boot.PrintJSON(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			boot.PrintReport(r)
		}
	}

	for _, r := range reports {
		if !r.Complete() {
			return errIncomplete
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	path := cfgFile
	if path == "" {
		path = loader.Discover(".")
	}
	return loader.Load(path)
}

func newLogger(w io.Writer) (ports.Logger, error) {
	level, err := ports.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if verbose && level > ports.LevelDebug {
		level = ports.LevelDebug
	}

	var asJSON bool
	switch logFormat {
	case "text", "":
	case "json":
		asJSON = true
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", logFormat)
	}

	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(asJSON),
	), nil
}

func printWelcome(w io.Writer) {
	_, _ = fmt.Fprint(w, `wslboot sets up a WSL development environment on this machine.

  wslboot --install            install every missing component
  wslboot --verify             check what is installed, changing nothing
  wslboot --install --verify   install, then check everything again

Run 'wslboot --help' for all options.
`)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var list *config.ErrorList
	if errors.As(err, &list) && list.Len() > 1 {
		return strings.TrimRight(list.Format(), "\n")
	}

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
}
