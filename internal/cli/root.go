package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	HistoryDB  string

	// Dir overrides the working directory (for testing).
	// If empty, the process working directory is used.
	Dir string

	// Compiler overrides the yaegi compiler (for testing).
	Compiler engine.Compiler
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scripthost CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scripthost",
		Short: "scripthost - incremental Go scripting host",
		Long: `Run Go scripts with #load, #r and using directives against a warm
interpreter session that only receives what changed between submissions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: scripthost.yaml, scripthost.yml or scripthost.cue in the working directory)")
	cmd.PersistentFlags().StringVar(&opts.HistoryDB, "history-db", "", "SQLite submission history (overrides history_db in the config)")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewPreprocessCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
