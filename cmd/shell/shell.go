// Package shell provides the "sheetlens shell" interactive REPL command.
package shell

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	shellpkg "github.com/klytics/sheetlens/internal/shell"
)

// NewCommand creates the "shell" command. run executes one command line;
// the root package passes its own entry point to avoid an import cycle.
func NewCommand(run shellpkg.CommandRunner) *cobra.Command {
	var (
		evalCmd  string
		workbook string
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive sheetlens shell",
		Long: `Start an interactive REPL with history and tab completion.

'open <file>' selects a workbook so that export and show can be typed
without repeating the path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			shellpkg.DefaultRunner = func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
				if configPath != "" {
					args = append(args, "--config", configPath)
				}
				return run(ctx, args, stdout, stderr)
			}

			session, err := shellpkg.NewSession()
			if err != nil {
				return err
			}
			session.Out = cmd.OutOrStdout()
			session.Workbook = workbook

			if evalCmd != "" {
				out, err := session.Eval(cmd.Context(), evalCmd)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			return session.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&evalCmd, "eval", "", "Run a single command and exit")
	cmd.Flags().StringVar(&workbook, "open", "", "Workbook to open at start")
	return cmd
}
