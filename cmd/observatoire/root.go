package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/observatoire/observatoire/internal/config"
	"github.com/observatoire/observatoire/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "observatoire",
		Short:        "Agency leaderboard built from PageSpeed and Website Carbon audits",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// serve logs to stdout like any daemon; the other commands keep
			// stdout for their own output.
			var w io.Writer = os.Stderr
			if cmd.Name() == "serve" {
				w = os.Stdout
			}
			return a.load(w, cmd.Flags().Changed("config"))
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "override log.format (json|text)")

	cmd.AddCommand(
		serveCmd(a),
		rankCmd(a),
		refreshCmd(a),
		migrateCmd(a),
		importCmd(a),
	)
	return cmd
}

// load reads the config file and installs the default logger. A missing
// file falls back to defaults unless the path was given explicitly.
func (a *app) load(w io.Writer, explicit bool) error {
	cfg, err := config.Load(a.configPath)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := logging.Setup(w, cfg.Log.Format, cfg.Log.Level); err != nil {
		return err
	}

	a.cfg = cfg
	slog.Debug("config loaded",
		"path", a.configPath,
		"backend", cfg.Store.Backend,
		"auth_mode", cfg.Auth.Mode,
	)
	return nil
}
