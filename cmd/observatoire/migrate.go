package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/observatoire/observatoire/internal/config"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Store.Backend == config.BackendFile {
				slog.Info("file backend has no schema, nothing to migrate", "path", a.cfg.Store.Path)
				return nil
			}
			// Postgres runs goose migrations; Mongo ensures its indexes on connect.
			be, err := openBackend(cmd.Context(), a.cfg.Store, true)
			if err != nil {
				return err
			}
			defer be.close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", a.cfg.Store.Backend)
			return nil
		},
	}
}
