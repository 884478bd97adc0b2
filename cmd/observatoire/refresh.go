package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/observatoire/observatoire/internal/notify"
	"github.com/observatoire/observatoire/internal/ratelimit"
	"github.com/observatoire/observatoire/internal/refresh"
	"github.com/observatoire/observatoire/internal/scraper"
)

// cliRequester identifies refreshes started from the command line.
const cliRequester = "cli"

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <url>",
		Short: "Re-audit one agency and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := scraper.New(a.cfg.PageSpeed, a.cfg.Carbon)
			if err != nil {
				return err
			}
			be, err := openBackend(cmd.Context(), a.cfg.Store, false)
			if err != nil {
				return err
			}
			defer be.close()

			notifier := notify.New(a.cfg.Notify.Webhooks)
			orch := refresh.New(ratelimit.New(a.cfg.RateLimit.Cooldown), client, be)
			orch.OnRefreshed(notifier.Refreshed)
			out := orch.Refresh(cmd.Context(), cliRequester, args[0])
			notifier.Wait()
			if !out.OK() {
				return errors.New(out.Message)
			}

			s := out.Scores
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "performance %.0f  accessibility %.0f  best-practices %.0f  seo %.0f\n",
				s.Performance, s.Accessibility, s.BestPractices, s.SEO)
			if s.CarbonGramsPerView != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "carbon %.2f g/view\n", *s.CarbonGramsPerView)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report %s\n", s.ReportURL)
			return nil
		},
	}
}
