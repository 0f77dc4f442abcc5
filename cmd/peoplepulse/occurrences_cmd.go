package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"peoplepulse/internal/calendar"
	"peoplepulse/internal/model"
)

type occurrencesOutput struct {
	Command     string             `json:"command"`
	Until       string             `json:"until"`
	Occurrences []model.Occurrence `json:"occurrences"`
}

func newOccurrencesCmd(root *rootOptions) *cobra.Command {
	var (
		id     string
		until  string
		types  []string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List expanded occurrences of the loaded events",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd.Context())
			if err != nil {
				return err
			}

			end := calendar.EndOfMonth(time.Now().In(rt.loc))
			if until != "" {
				d, err := parseDay(until, rt.loc)
				if err != nil {
					return fmt.Errorf("invalid --until: %w", err)
				}
				end = d
			}
			end = calendar.EndOfDay(end)
			if limit <= 0 {
				limit = rt.cfg.MaxOccurrences
			}

			var occs []model.Occurrence
			if id != "" {
				var ok bool
				occs, ok = rt.store.Occurrences(id, end, limit)
				if !ok {
					return fmt.Errorf("event %q not found", id)
				}
			} else {
				occs = calendar.ExpandAll(rt.store.FilterByType(types...), end, limit)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), occurrencesOutput{
					Command:     "occurrences",
					Until:       end.Format(time.RFC3339),
					Occurrences: occs,
				})
			}

			return printOccurrences(cmd.OutOrStdout(), occs, rt.loc)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Expand a single event by id")
	cmd.Flags().StringVar(&until, "until", "", "Last day to expand to (YYYY-MM-DD, default end of this month)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Restrict to these event types")
	cmd.Flags().IntVar(&limit, "max", 0, "Occurrence cap per event (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// printOccurrences writes occs as an aligned table with start times in loc.
func printOccurrences(w io.Writer, occs []model.Occurrence, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tID\tTYPE\tTITLE")
	for _, occ := range occs {
		start := occ.Start.In(loc).Format("2006-01-02 15:04")
		if occ.AllDay {
			start = occ.Start.In(loc).Format("2006-01-02") + " (all day)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", start, occ.ID, occ.Type, occ.Title)
	}
	return tw.Flush()
}
