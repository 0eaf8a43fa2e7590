package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/repl"
)

// HistoryFileName is the default REPL line history file in the home directory.
const HistoryFileName = ".scripthost_history"

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	LogFile     string
	HistoryFile string
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl [script] [args...]",
		Short: "Start an interactive session",
		Long: `Start an interactive session over one warm interpreter.

Input is buffered until brackets balance. If a script is given it is
loaded first, so its declarations are available at the prompt.

Meta commands: :references, :namespaces, :help, :quit

Example:
  scripthost repl
  scripthost repl ./helpers.csx --log-file session.log`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script, args = args[0], args[1:]
			}
			return runRepl(opts, cmd, script, args)
		},
	}

	defaultHistory := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultHistory = filepath.Join(home, HistoryFileName)
	}
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "copy all console input and output to this file")
	cmd.Flags().StringVar(&opts.HistoryFile, "history-file", defaultHistory, "line history file (empty disables)")

	return cmd
}

func runRepl(opts *ReplOptions, cmd *cobra.Command, script string, args []string) error {
	host, err := openHost(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer host.Close()

	var console repl.Console = newConsole(cmd, opts.HistoryFile)
	if opts.LogFile != "" {
		fc, err := repl.NewFileConsole(opts.LogFile, console)
		if err != nil {
			_ = console.Close()
			return WrapExitError(ExitCommandError, "failed to open log file", err)
		}
		console = fc
	}
	defer func() {
		if err := console.Close(); err != nil {
			host.Logger.Error("error closing console", "error", err)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r := repl.New(host.Coordinator, console, repl.WithArgs(args...), repl.WithLogger(host.Logger))
	if err := r.Run(ctx, script); err != nil {
		return WrapExitError(ExitFailure, "repl stopped", err)
	}
	return nil
}

// newConsole uses a line-editing console on a real terminal and a plain
// reader otherwise (pipes, tests).
func newConsole(cmd *cobra.Command, historyFile string) repl.Console {
	in, inFile := cmd.InOrStdin().(*os.File)
	out, outFile := cmd.OutOrStdout().(*os.File)
	if inFile && outFile {
		return repl.NewConsole(in, out, historyFile)
	}
	return repl.NewPlainConsole(cmd.InOrStdin(), cmd.OutOrStdout())
}
