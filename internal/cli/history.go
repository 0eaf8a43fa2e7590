package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	Session    string
	ScriptHash string
	Sessions   bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled submissions",
		Long: `List submissions recorded in the SQLite history database.

The database is taken from --db, then --history-db, then history_db in the
config file.

Example:
  scripthost history --db ./history.db
  scripthost history --db ./history.db --session 0192f0c4-...
  scripthost history --db ./history.db --sessions --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite history database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only list this session")
	cmd.Flags().StringVar(&opts.ScriptHash, "hash", "", "only list submissions of this script hash")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "summarize sessions instead of listing submissions")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := historyPath(opts)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("history database not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "history database not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Sessions {
		summaries, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query sessions", err)
		}
		if opts.Format == "json" {
			return formatter.Success(summaries)
		}
		printSessions(cmd.OutOrStdout(), summaries)
		return nil
	}

	var records []engine.SubmissionRecord
	if opts.ScriptHash != "" {
		records, err = st.FindByScriptHash(ctx, opts.ScriptHash)
	} else {
		records, err = st.History(ctx, opts.Session)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query history", err)
	}

	if opts.Format == "json" {
		return formatter.Success(records)
	}
	printSubmissions(cmd.OutOrStdout(), records)
	return nil
}

func historyPath(opts *HistoryOptions) (string, error) {
	if opts.Database != "" {
		return opts.Database, nil
	}
	if opts.HistoryDB != "" {
		return opts.HistoryDB, nil
	}
	dir, err := workDir(opts.RootOptions)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to resolve working directory", err)
	}
	cfg, err := loadConfig(opts.RootOptions, dir)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.HistoryDB == "" {
		return "", NewExitError(ExitCommandError, "no history database: pass --db or set history_db in the config")
	}
	return cfg.HistoryDB, nil
}

func printSubmissions(w io.Writer, records []engine.SubmissionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No submissions recorded.")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s #%d %s %s\n", rec.SessionID, rec.Seq, rec.Status, firstLine(rec.Code))
		if rec.Error != "" {
			fmt.Fprintf(w, "    %s\n", rec.Error)
		}
	}
}

func printSessions(w io.Writer, summaries []store.SessionSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %d submission(s)  %d failure(s)  last seq %d\n", s.ID, s.Submissions, s.Failures, s.LastSeq)
	}
}

// firstLine returns the first non-blank line that is not a marker, so the
// listing shows code rather than imports or #line markers.
func firstLine(code string) string {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "using ") || strings.HasPrefix(trimmed, "#line ") {
			continue
		}
		return trimmed
	}
	return ""
}
