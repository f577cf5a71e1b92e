// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sheetlens configuration",
		Long: `Interactive setup, view, and modify sheetlens settings.

Settings live in ~/.sheetlens/config.yaml (or the file given with --config).
Every key can be overridden with a SHEETLENS_ environment variable, e.g.
SHEETLENS_OUTPUT_DIR or SHEETLENS_TAGS_FORMULA.`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newResetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEnvCommand())
	return cmd
}

func newInitCommand() *cobra.Command {
	var noInteractive bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noInteractive {
				if err := config.WizardNonInteractive(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote defaults to %s\n", config.ConfigPath())
				return nil
			}
			return config.Wizard(cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Skip prompts, use defaults")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				cfg, err := config.FromContext(cmd.Context())
				if err != nil {
					return err
				}
				return output.PrintJSON(cmd.OutOrStdout(), "config show", cfg)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.ShowConfig())
			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  sheetlens config set formats text,markdown_rich,json
  sheetlens config set tags.formula fx
  sheetlens config set labels.no_data "(empty)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if val := config.Get(args[0]); val == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], val)
			}
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := config.Validate()
			out := cmd.OutOrStdout()

			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON(out, "config validate", issues)
			}

			errors, warnings := 0, 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errors++
				case "warning":
					warnings++
				}
			}

			if errors == 0 && warnings == 0 {
				color.New(color.FgGreen).Fprintln(out, "Configuration is valid")
				return nil
			}

			fmt.Fprintf(out, "Config validation: %d errors, %d warnings\n\n", errors, warnings)
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					color.New(color.FgRed).Fprintf(out, "  %s\n", issue.Message)
				case "warning":
					color.New(color.FgYellow).Fprintf(out, "  %s\n", issue.Message)
				case "info":
					color.New(color.FgGreen).Fprintf(out, "  %s\n", issue.Message)
				}
				if issue.Fix != "" {
					fmt.Fprintf(out, "   Fix: %s\n", issue.Fix)
				}
			}
			if errors > 0 {
				return fmt.Errorf("configuration has %d error(s)", errors)
			}
			return nil
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Export configuration as environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.ToEnv()
			out := cmd.OutOrStdout()

			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON(out, "config env", env)
			}

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "export %s=%q\n", k, env[k])
			}
			fmt.Fprintln(out, "# Add these to your ~/.zshrc or ~/.bashrc")
			return nil
		},
	}
}
