package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/observatoire/observatoire/internal/api"
	"github.com/observatoire/observatoire/internal/auth"
	"github.com/observatoire/observatoire/internal/ranking"
)

func rankCmd(a *app) *cobra.Command {
	var sortKey, order string
	var asJSON bool

	c := &cobra.Command{
		Use:   "rank",
		Short: "Print the ranked leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := ranking.ParseKey(sortKey)
			if err != nil {
				return err
			}
			ord, err := ranking.ParseOrder(order)
			if err != nil {
				return err
			}

			be, err := openBackend(cmd.Context(), a.cfg.Store, false)
			if err != nil {
				return err
			}
			defer be.close()

			h := api.New(be, nil, auth.NewIssuer(auth.ModeNone, ""), nil, nil)
			lb := h.Leaderboard(cmd.Context(), key, ord)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(lb)
			}
			return renderLeaderboard(cmd.OutOrStdout(), lb)
		},
	}

	c.Flags().StringVar(&sortKey, "sort", string(ranking.DefaultKey), "sort key (compositeScore, performance, accessibility, best-practices, seo, carbon, date, name, url)")
	c.Flags().StringVar(&order, "order", string(ranking.DefaultOrder), "sort order (asc|desc)")
	c.Flags().BoolVar(&asJSON, "json", false, "print the leaderboard as JSON")
	return c
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	classColor  = map[string]lipgloss.Color{
		ranking.ClassHigh:   lipgloss.Color("35"),
		ranking.ClassMedium: lipgloss.Color("214"),
		ranking.ClassLow:    lipgloss.Color("196"),
	}
)

// leaderboardColumns maps table columns to the class key colouring them.
var leaderboardColumns = []struct {
	title string
	class string
}{
	{"#", ""},
	{"Agency", ""},
	{"Domain", ""},
	{"Score", ""},
	{"Perf", string(ranking.KeyPerformance)},
	{"A11y", string(ranking.KeyAccessibility)},
	{"BP", string(ranking.KeyBestPractices)},
	{"SEO", string(ranking.KeySEO)},
	{"CO2 g", string(ranking.KeyCarbon)},
	{"Audited", ""},
}

func leaderboardRows(lb api.LeaderboardResponse) [][]string {
	rows := make([][]string, 0, len(lb.Agencies))
	for _, ag := range lb.Agencies {
		row := []string{
			strconv.Itoa(ag.Rank),
			ag.Name,
			ag.Domain,
			fmt.Sprintf("%.1f", ag.CompositeScore),
			"-", "-", "-", "-", "-", "never",
		}
		if au := ag.LatestAudit; au != nil {
			s := au.Scores
			row[4] = fmt.Sprintf("%.0f", s.Performance)
			row[5] = fmt.Sprintf("%.0f", s.Accessibility)
			row[6] = fmt.Sprintf("%.0f", s.BestPractices)
			row[7] = fmt.Sprintf("%.0f", s.SEO)
			if s.CarbonGramsPerView != nil {
				row[8] = fmt.Sprintf("%.2f", *s.CarbonGramsPerView)
			}
			row[9] = au.Date.UTC().Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

func renderLeaderboard(w io.Writer, lb api.LeaderboardResponse) error {
	headers := make([]string, len(leaderboardColumns))
	for i, col := range leaderboardColumns {
		headers[i] = col.title
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(leaderboardRows(lb)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			class := leaderboardColumns[col].class
			if class == "" || row < 0 || row >= len(lb.Agencies) {
				return cellStyle
			}
			if c, ok := classColor[lb.Agencies[row].Classes[class]]; ok {
				return cellStyle.Foreground(c)
			}
			return cellStyle
		})

	_, err := fmt.Fprintf(w, "%s\nsorted by %s %s, %d agencies\n",
		t.Render(), lb.Sort.Column, lb.Sort.Order, len(lb.Agencies))
	return err
}
