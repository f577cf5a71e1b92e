// Package cmd contains all CLI commands for the sheetlens binary.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/cmd/batch"
	"github.com/klytics/sheetlens/cmd/completion"
	cmdconfig "github.com/klytics/sheetlens/cmd/config"
	cmdexport "github.com/klytics/sheetlens/cmd/export"
	cmdhistory "github.com/klytics/sheetlens/cmd/history"
	cmdshell "github.com/klytics/sheetlens/cmd/shell"
	"github.com/klytics/sheetlens/cmd/show"
	"github.com/klytics/sheetlens/cmd/version"
	cmdwatch "github.com/klytics/sheetlens/cmd/watch"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/output"
)

// NewRootCommand creates the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
		verbose    bool
		noColor    bool
		logFormat  string
	)

	rootCmd := &cobra.Command{
		Use:   "sheetlens",
		Short: "Turn Excel workbooks into readable grids and structured archives",
		Long: `sheetlens exports .xlsx workbooks as text and Markdown grids with
reference tags for formulas, comments and hyperlinks, plus a structured
JSON, YAML or TOML archive of every non-empty cell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("SHEETLENS_JSON", "true")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			logger := logrus.StandardLogger()
			if err := cfg.ConfigureLogger(logger, verbose); err != nil {
				logger.WithError(err).Warn("ignoring log settings")
			}
			logger.SetOutput(cmd.ErrOrStderr())

			cmd.SetContext(config.NewContext(ctxOf(cmd), cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.sheetlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text | json")

	rootCmd.AddCommand(cmdexport.NewCommand())
	rootCmd.AddCommand(show.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(cmdhistory.NewCommand())
	rootCmd.AddCommand(cmdshell.NewCommand(Run))
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Run executes one command line against a fresh command tree. The shell
// uses it so every line starts from clean flag state.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
	}
	return err
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	code := output.ExitCode(err)
	if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
		output.PrintJSONError(os.Stdout, cmd.CommandPath(), err, code)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
	}
	os.Exit(code)
}
