package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/donaldgifford/tenant-storefront/internal/session"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

// printItemsTable lists items numbered from offset.
func printItemsTable(w io.Writer, items []domain.CatalogItem, offset int) error {
	tw := newTabWriter(w)
	tw.writef("#\tMODEL\tTITLE\tCATEGORY\tH x W x D\n")
	for i := range items {
		it := &items[i]
		tw.writef("%d\t%s\t%s\t%s\t%s\n",
			offset+i+1,
			it.ModelNumber,
			truncate(it.Title, 40),
			it.CategoryName,
			formatDimensions(it.Dimensions),
		)
	}
	return tw.finish()
}

func printSessionDetail(w io.Writer, v *session.View) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", v.ID)
	tw.writef("Tenant:\t%s\n", v.TenantID)
	tw.writef("Category:\t%s\n", v.CategoryID)
	tw.writef("State:\t%s\n", v.State)
	tw.writef("Items:\t%d\n", len(v.Items))
	tw.writef("Next Page:\t%d\n", v.NextPageIndex)
	tw.writef("Has More:\t%v\n", v.HasMore)
	tw.writef("Loading:\t%v\n", v.IsLoading)
	if v.Error.Open {
		tw.writef("Error:\t%s: %s\n", v.Error.Title, v.Error.Message)
	}
	tw.writef("Opened:\t%s\n", v.OpenedAt.Format(timeLayout))
	tw.writef("Last Access:\t%s\n", v.LastAccessAt.Format(timeLayout))
	return tw.finish()
}

func printEventsTable(w io.Writer, events []domain.LoadEvent) error {
	tw := newTabWriter(w)
	tw.writef("ID\tKIND\tPAGE\tITEMS\tTOTAL\tDURATION\tERROR\tAT\n")
	for i := range events {
		ev := &events[i]
		errText := "-"
		if ev.ErrorKind != "" {
			errText = truncate(ev.ErrorKind+": "+ev.ErrorMessage, 40)
		}
		tw.writef("%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.ID,
			ev.Kind,
			dashIfZero(ev.PageIndex),
			dashIfZero(ev.Items),
			dashIfZero(ev.RecordsTotal),
			formatDuration(ev.DurationMs),
			errText,
			ev.OccurredAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDimensions(d domain.Dimensions) string {
	if d.Height == 0 && d.Width == 0 && d.Depth == 0 {
		return "-"
	}
	return fmt.Sprintf("%g x %g x %g", d.Height, d.Width, d.Depth)
}

func formatDuration(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", ms)
}

func dashIfZero(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
