package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
	"github.com/tiktokalert/tiktokalert-go/internal/config"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tiktokalert.

To load completions:

Bash:
  $ source <(tiktokalert completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tiktokalert completion bash > /etc/bash_completion.d/tiktokalert
  # macOS:
  $ tiktokalert completion bash > $(brew --prefix)/etc/bash_completion.d/tiktokalert

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tiktokalert completion zsh > "${fpath[1]}/_tiktokalert"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tiktokalert completion fish | source

  # To load completions for each session, execute once:
  $ tiktokalert completion fish > ~/.config/fish/completions/tiktokalert.fish

PowerShell:
  PS> tiktokalert completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> tiktokalert completion powershell > tiktokalert.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}

			root := cmd.Root()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeBroadcasters completes the first argument with the broadcasters
// that have a log in --log-dir, most recently active first.
func completeBroadcasters(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	dir, err := cmd.Flags().GetString(config.KeyLogDir)
	if err != nil || dir == "" {
		dir = config.DefaultLogDir
	}
	ids, err := activitylog.List(dir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	prefix := strings.ToLower(trimHandle(toComplete))
	var candidates []string
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			candidates = append(candidates, id)
		}
	}
	return candidates, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveKeepOrder
}

// completeFormats returns the output formats in a stable order.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	formats := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		if strings.HasPrefix(f, strings.ToLower(toComplete)) {
			formats = append(formats, f)
		}
	}
	sort.Strings(formats)
	return formats, cobra.ShellCompDirectiveNoFileComp
}

func registerFormatCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
}
