package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/store"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Seed the configured store with agencies from a JSON data file",
		Long: "Reads a JSON array of {name, url, latestAudit?} records and inserts every " +
			"agency whose URL is not yet stored. Existing agencies are left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agencies, err := readAgencies(args[0])
			if err != nil {
				return err
			}
			be, err := openBackend(cmd.Context(), a.cfg.Store, true)
			if err != nil {
				return err
			}
			defer be.close()

			n, err := seed(cmd.Context(), be, agencies)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d agencies into the %s store\n",
				n, len(agencies), a.cfg.Store.Backend)
			return nil
		},
	}
}

// readAgencies parses a data file in the persisted agency format.
func readAgencies(path string) ([]domain.Agency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import: read %q: %w", path, err)
	}
	var agencies []domain.Agency
	if err := json.Unmarshal(data, &agencies); err != nil {
		return nil, fmt.Errorf("import: parse %q: %w", path, err)
	}
	for i, ag := range agencies {
		if strings.TrimSpace(ag.URL) == "" {
			return nil, fmt.Errorf("import: record %d (%q) has no url", i, ag.Name)
		}
	}
	return agencies, nil
}

func seed(ctx context.Context, s store.Seeder, agencies []domain.Agency) (int, error) {
	if len(agencies) == 0 {
		return 0, nil
	}
	return s.Seed(ctx, agencies)
}
