package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"peoplepulse/internal/calendar"
)

func newGridCmd(root *rootOptions) *cobra.Command {
	var (
		date   string
		view   string
		types  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the month, week or day grid around a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd.Context())
			if err != nil {
				return err
			}

			focus, err := parseDay(date, rt.loc)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			v, err := calendar.ParseView(view)
			if err != nil {
				return err
			}

			g := calendar.BuildGrid(focus, v, rt.store.Events(), calendar.GridOptions{
				WeekStart:      calendar.ParseWeekStart(rt.cfg.WeekStart),
				Today:          time.Now().In(rt.loc),
				MaxOccurrences: rt.cfg.MaxOccurrences,
				Types:          types,
			})
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), g)
			}
			printGrid(cmd.OutOrStdout(), g)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Focus date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&view, "view", "month", "month, week or day")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Restrict to these event types")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

// printGrid renders rows of day cells, "12*" marking today and "." each
// occurrence, followed by the occurrence list.
func printGrid(w io.Writer, g calendar.Grid) {
	rows := g.Weeks
	if rows == nil {
		rows = [][]calendar.Day{g.Days}
	}

	fmt.Fprintf(w, "%s (%s)\n", g.Focus.Format("January 2006"), g.View)
	for _, d := range rows[0] {
		fmt.Fprintf(w, "%-6s", d.Date.Format("Mon"))
	}
	fmt.Fprintln(w)

	for _, week := range rows {
		for _, d := range week {
			cell := fmt.Sprintf("%2d", d.Date.Day())
			if !d.InFocusMonth && g.View == calendar.ViewMonth {
				cell = "  "
			}
			if d.IsToday {
				cell += "*"
			}
			cell += strings.Repeat(".", min(len(d.Occurrences), 3))
			fmt.Fprintf(w, "%-6s", cell)
		}
		fmt.Fprintln(w)
	}

	for _, d := range g.Days {
		for _, occ := range d.Occurrences {
			fmt.Fprintf(w, "%s  %s  %s\n", d.Key(), occ.Title, occ.Type)
		}
	}
}
