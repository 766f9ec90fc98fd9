package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for your shell and print it to stdout.

  bash:        source <(hitpad completion bash)
  zsh:         hitpad completion zsh > "${fpath[1]}/_hitpad"
  fish:        hitpad completion fish > ~/.config/fish/completions/hitpad.fish
  powershell:  hitpad completion powershell | Out-String | Invoke-Expression

Environment names complete for --env and the env subcommands.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// completeEnvironments lists saved environment names. Failures yield no
// suggestions rather than an error.
func completeEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	s, err := openSession(cfg, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer s.Close()

	var names []string
	for _, b := range s.ws.Environments() {
		names = append(names, b.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeFirstArgEnvironment completes the environment name argument of the
// env subcommands.
func completeFirstArgEnvironment(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	return completeEnvironments(cmd, args, toComplete)
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, c := range []*cobra.Command{envShowCmd, envSetCmd, envUnsetCmd, envDeleteCmd, envImportCmd} {
		c.ValidArgsFunction = completeFirstArgEnvironment
	}
}
