package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/tenant-storefront/internal/api/client"
	"github.com/donaldgifford/tenant-storefront/internal/session"
)

func browseCmd() *cobra.Command {
	var (
		pages int
		keep  bool
	)

	cmd := &cobra.Command{
		Use:   "browse <tenant-id> <category-id>",
		Short: "Page through a tenant category",
		Long: "Open a storefront session for a tenant category, wait for the first\n" +
			"page and print its items. With --pages the next pages are requested\n" +
			"one at a time until the catalog is exhausted. The session is closed\n" +
			"afterwards unless --keep is set.",
		Example: `  sfctl browse acme sofa-legs
  sfctl browse acme sofa-legs --pages 3
  sfctl browse acme sofa-legs --keep --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be >= 1 (got %d)", pages)
			}
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0], args[1], pages, keep)
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the session open")

	return cmd
}

func runBrowse(
	ctx context.Context,
	w io.Writer,
	c *apiclient.Client,
	tenantID, categoryID string,
	pages int,
	keep bool,
) error {
	v, err := c.OpenSession(ctx, tenantID, categoryID, true)
	if err != nil {
		return err
	}

	v, err = loadPages(ctx, c, v, pages)
	if !keep {
		if cerr := c.CloseSession(ctx, v.ID); cerr != nil && err == nil {
			err = fmt.Errorf("closing session: %w", cerr)
		}
	}
	if err != nil {
		return err
	}

	if jsonOutput() {
		return outputJSON(w, v)
	}

	if len(v.Items) == 0 && !v.Error.Open {
		fmt.Fprintln(w, "No items found.")
	} else if err := printItemsTable(w, v.Items, 0); err != nil {
		return err
	}
	if v.Error.Open {
		fmt.Fprintf(w, "\n%s: %s\n", v.Error.Title, v.Error.Message)
	}
	fmt.Fprintf(w, "\n%d items loaded, state %s", len(v.Items), v.State)
	if keep {
		fmt.Fprintf(w, ", session %s", v.ID)
	}
	fmt.Fprintln(w)
	return nil
}

// loadPages requests pages beyond the first until n pages are loaded or the
// session stops accepting requests.
func loadPages(ctx context.Context, c *apiclient.Client, v *session.View, n int) (*session.View, error) {
	for range n - 1 {
		started, err := c.NextPage(ctx, v.ID)
		if err != nil {
			return v, err
		}
		if !started {
			break
		}
		next, err := c.GetSession(ctx, v.ID, true)
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, nil
}
