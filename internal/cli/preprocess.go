package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/fsys"
	"github.com/roach88/scripthost/internal/preprocess"
)

// NewPreprocessCommand creates the preprocess command.
func NewPreprocessCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess <script>",
		Short: "Print the assembled unit of a script",
		Long: `Resolve #load, #r and using directives and print the single unit that
would be submitted. With --format json the namespaces, references and
loaded scripts are printed as well.

Example:
  scripthost preprocess ./main.csx
  scripthost preprocess ./main.csx --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runPreprocess(opts *RootOptions, cmd *cobra.Command, script string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dir, err := workDir(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve working directory", err)
	}
	cfg, err := loadConfig(opts, dir)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Level(), opts.Verbose)

	fs := fsys.NewOSAt(dir)
	if !filepath.IsAbs(script) {
		script = filepath.Join(dir, script)
	}
	result, err := preprocess.New(fs, preprocess.WithLogger(logger)).ProcessFile(script)
	if err != nil {
		_ = formatter.Error(errorCodeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to preprocess script", err)
	}

	formatter.VerboseLog("Loaded %d script(s), %d reference(s), %d namespace(s)",
		len(result.LoadedScripts), len(result.References), len(result.Namespaces))
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Code)
	return nil
}
