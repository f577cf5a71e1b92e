// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for sheetlens.

Install instructions:
  Bash:       sheetlens completion bash > /etc/bash_completion.d/sheetlens
              echo 'source <(sheetlens completion bash)' >> ~/.bashrc
  Zsh:        sheetlens completion zsh > ~/.zsh/completions/_sheetlens
  Fish:       sheetlens completion fish > ~/.config/fish/completions/sheetlens.fish
  PowerShell: sheetlens completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# sheetlens bash completion")
				fmt.Fprintln(out, "# Install: echo 'source <(sheetlens completion bash)' >> ~/.bashrc")
				fmt.Fprintln(out)
				return rootCmd.GenBashCompletionV2(out, true)
			case "zsh":
				fmt.Fprintln(out, "# sheetlens zsh completion")
				fmt.Fprintln(out, "# Install: sheetlens completion zsh > ~/.zsh/completions/_sheetlens")
				fmt.Fprintln(out)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# sheetlens fish completion")
				fmt.Fprintln(out, "# Install: sheetlens completion fish > ~/.config/fish/completions/sheetlens.fish")
				fmt.Fprintln(out)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# sheetlens PowerShell completion")
				fmt.Fprintln(out, "# Install: sheetlens completion powershell >> $PROFILE")
				fmt.Fprintln(out)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
}
