package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiktokalert/tiktokalert-go/internal/config"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errMissingArgs makes run print the positional argument help on stdout.
var errMissingArgs = errors.New("missing required arguments")

const missingArgsMessage = `
Error: Faltan los siguientes argumentos requeridos:
  - unique_id: El unique_id del usuario de TikTok.
  - user_id: El user_id que se desea filtrar.
  - topic_id: El topic_id para las notificaciones.

Por favor, proporciónalos al ejecutar el programa.

Uso correcto del programa:`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if errors.Is(err, errMissingArgs) {
			fmt.Fprintln(stdout, missingArgsMessage)
			fmt.Fprint(stdout, root.UsageString())
			return 1
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tiktokalert <unique_id> <user_id> <topic_id>",
		Short: "Watch a TikTok live and get pushed when someone shows up",
		Long: `tiktokalert watches the live stream of <unique_id> and writes every chat
message, gift and join to <unique_id>_log.txt and stdout.

When <user_id> comments or joins, a push notification is posted to the
ntfy topic <topic_id>. While the broadcaster is offline the connection is
retried every 5 minutes.

Every flag can also be set through a TIKTOKALERT_* environment variable,
e.g. TIKTOKALERT_NTFY_SERVER.

Examples:
  # Watch @streamer and get notified about @fan
  tiktokalert streamer fan my-topic

  # Use a self-hosted ntfy server and keep logs in ./logs
  tiktokalert streamer fan my-topic --ntfy-server https://ntfy.example.com --log-dir logs`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return errMissingArgs
			}
			return nil
		},
		RunE:          runWatch,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags (inherited by all subcommands)
	root.PersistentFlags().BoolP(config.KeyVerbose, "v", false, "Enable verbose logging")
	config.RegisterFlags(root.Flags())

	root.AddCommand(newTailCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompletionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tiktokalert %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// newLogger returns the diagnostic logger on w. Without verbose only
// warnings, such as dropped notifications, are shown.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
