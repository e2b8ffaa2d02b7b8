package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/restorm/internal/config"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for restorm.

  $ source <(restorm completion bash)
  $ restorm completion zsh > "${fpath[1]}/_restorm"
  $ restorm completion fish | source
  PS> restorm completion powershell | Out-String | Invoke-Expression

Resource type names declared in the config file complete as arguments of
list, get and schema.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// completeTypes completes the first argument with the resource names declared
// in the config file, without contacting the remote site
func completeTypes(opts *globalOptions) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		names := make([]string, 0, len(cfg.Resources))
		for _, res := range cfg.Resources {
			names = append(names, res.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}
