package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/tenant-storefront/internal/api/client"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func eventsCmd() *cobra.Command {
	var (
		kinds  []string
		since  string
		limit  int
		offset int
		order  string
	)

	cmd := &cobra.Command{
		Use:   "events <session-id>",
		Short: "List a session's load events",
		Long: "List the audited load events of a session: opens, pages, exhaustion,\n" +
			"failures and closes. Requires the server's audit store.",
		Example: `  sfctl events 6f1c...
  sfctl events 6f1c... --kind failed --since 2h
  sfctl events 6f1c... --order desc --limit 20 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &apiclient.EventsParams{
				Limit:  limit,
				Offset: offset,
				Order:  order,
			}
			for _, k := range kinds {
				p.Kinds = append(p.Kinds, domain.LoadEventKind(k))
			}
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				p.Since = t
			}

			page, err := newClient().ListEvents(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput() {
				return outputJSON(w, page)
			}
			if len(page.Events) == 0 {
				fmt.Fprintln(w, "No events found.")
				return nil
			}
			if err := printEventsTable(w, page.Events); err != nil {
				return err
			}
			fmt.Fprintf(w, "\nShowing %d of %d events\n", len(page.Events), page.Total)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil,
		"filter by event kind (session_opened, page, exhausted, failed, session_closed)")
	cmd.Flags().StringVar(&since, "since", "", "only events after a duration ago (2h) or an RFC 3339 time")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events to return (server default 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "events to skip")
	cmd.Flags().StringVar(&order, "order", "", "sort order (asc, desc)")

	return cmd
}

// parseSince accepts a duration relative to now or an absolute RFC 3339
// timestamp.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since must be a duration or RFC 3339 time (got %q)", s)
	}
	return t, nil
}
