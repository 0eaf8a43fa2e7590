package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/repl"
)

// DefaultDebounce is how long --watch waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Watch    bool
	Debounce time.Duration
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <script> [args...]",
		Short: "Run a script",
		Long: `Preprocess a script and everything it #loads, then run it.

Arguments after the script path are passed to the script as host.Args.
With --watch the script is re-run in the same warm session whenever any
loaded script changes; only newly required references and namespaces are
applied on each run.

Example:
  scripthost exec ./build.csx release
  scripthost exec --watch ./report.csx`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, cmd, args[0], args[1:])
		},
	}
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-run when a loaded script changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "how long --watch waits for writes to settle")

	return cmd
}

func runExec(opts *ExecOptions, cmd *cobra.Command, script string, scriptArgs []string) error {
	host, err := openHost(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer host.Close()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, err := host.Coordinator.Execute(ctx, script, scriptArgs...)
	if err != nil {
		_ = formatter.Error(errorCodeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run script", err)
	}
	reportErr := reportResult(formatter, result)
	if !opts.Watch {
		return reportErr
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return watchScripts(ctx, host, formatter, script, scriptArgs, debounce)
}

// reportResult prints a submission outcome. A failed submission becomes an
// ExitFailure error after its diagnostics are printed.
func reportResult(f *OutputFormatter, result *engine.Result) error {
	if err := result.Err(); err != nil {
		if outErr := f.Error(resultErrorCode(result), err.Error(), failureDetails(result)); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, string(result.Status()))
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	if result.ReturnValue != nil {
		fmt.Fprintln(f.Writer, repl.FormatValue(result.ReturnValue))
	}
	return nil
}

// watchScripts re-runs script whenever one of the files it loaded is
// written. Directories are watched rather than files so that editors that
// replace files on save are still seen. Returns nil when ctx is done.
func watchScripts(ctx context.Context, host *Host, f *OutputFormatter, script string, args []string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()

	files := map[string]bool{}
	dirs := map[string]bool{}
	rewatch := func() {
		unit := host.Coordinator.LastUnit()
		if unit == nil {
			return
		}
		for k := range files {
			delete(files, k)
		}
		for _, path := range unit.LoadedScripts {
			files[filepath.Clean(path)] = true
			dir := filepath.Dir(path)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				host.Logger.Error("failed to watch directory", "dir", dir, "error", err)
				continue
			}
			dirs[dir] = true
		}
		host.Logger.Debug("watching scripts", "files", len(files))
	}
	rewatch()
	f.VerboseLog("Watching %d script(s). Press Ctrl-C to stop.", len(files))

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				host.Logger.Debug("script changed", "file", ev.Name, "op", ev.Op.String())
				settle = time.After(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			host.Logger.Error("watch error", "error", err)

		case <-settle:
			settle = nil
			result, err := host.Coordinator.Execute(ctx, script, args...)
			if err != nil {
				_ = f.Error(errorCodeFor(err), err.Error(), nil)
				continue
			}
			_ = reportResult(f, result)
			rewatch()
		}
	}
}

// errorCodeFor classifies infrastructure errors from Coordinator.Execute.
func errorCodeFor(err error) string {
	if isNotExist(err) {
		return ErrCodeNotFound
	}
	return ErrCodeGeneric
}
