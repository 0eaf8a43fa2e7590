package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/scripthost/internal/config"
	"github.com/roach88/scripthost/internal/engine"
	"github.com/roach88/scripthost/internal/executor"
	"github.com/roach88/scripthost/internal/fsys"
	"github.com/roach88/scripthost/internal/gointerp"
	"github.com/roach88/scripthost/internal/pack"
	"github.com/roach88/scripthost/internal/preprocess"
	"github.com/roach88/scripthost/internal/store"
)

// Host is a fully wired script host: config, coordinator, and the optional
// history store.
type Host struct {
	Config      *config.Config
	Coordinator *executor.Coordinator
	Store       *store.Store
	Logger      *slog.Logger
}

// openHost loads the config, configures logging and initializes a
// coordinator whose pack session is ready for submissions.
func openHost(opts *RootOptions, cmd *cobra.Command) (*Host, error) {
	dir, err := workDir(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to resolve working directory", err)
	}

	cfg, err := loadConfig(opts, dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Level(), opts.Verbose)
	slog.SetDefault(logger)
	if cfg.Source != "" {
		logger.Debug("loaded config", "path", cfg.Source)
	}

	h := &Host{Config: cfg, Logger: logger}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	historyDB := opts.HistoryDB
	if historyDB == "" {
		historyDB = cfg.HistoryDB
	}
	if historyDB != "" {
		logger.Debug("opening history database", "path", historyDB)
		st, err := store.Open(historyDB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		h.Store = st
		engineOpts = append(engineOpts, engine.WithRecorder(st))
	}

	compiler := opts.Compiler
	if compiler == nil {
		compiler = gointerp.New(
			gointerp.WithGoPath(cfg.GoPath),
			gointerp.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
			gointerp.WithLogger(logger),
		)
	}

	fs := fsys.NewOSAt(dir)
	processor := preprocess.New(fs, preprocess.WithLogger(logger))
	eng := engine.New(compiler, engineOpts...)
	h.Coordinator = executor.New(fs, processor, eng, executor.WithLogger(logger))
	h.Coordinator.ImportNamespaces(cfg.Namespaces...)

	packs, err := pack.DefaultRegistry().Resolve(cfg.Packs)
	if err != nil {
		h.Close()
		return nil, WrapExitError(ExitCommandError, "failed to resolve packs", err)
	}
	if err := h.Coordinator.Initialize(cfg.References, packs); err != nil {
		h.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialize packs", err)
	}

	return h, nil
}

// Close tears down packs and closes the history store.
func (h *Host) Close() {
	h.Coordinator.Terminate()
	if h.Store != nil {
		if err := h.Store.Close(); err != nil {
			h.Logger.Error("error closing history database", "error", err)
		}
	}
}

func workDir(opts *RootOptions) (string, error) {
	if opts.Dir != "" {
		return opts.Dir, nil
	}
	return os.Getwd()
}

func loadConfig(opts *RootOptions, dir string) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	return config.Discover(dir)
}

// newLogger writes text logs to w. --verbose forces debug level.
func newLogger(w io.Writer, level slog.Level, verbose bool) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isNotExist reports whether err means a missing file.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
