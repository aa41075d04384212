package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	"github.com/donaldgifford/tenant-storefront/internal/session"
)

func sessionCmd() *cobra.Command {
	sessionRoot := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect and drive open sessions",
		Long: "Inspect and drive storefront sessions opened with browse --keep or\n" +
			"by the storefront pages.",
	}

	sessionRoot.AddCommand(
		sessionGetCmd(),
		sessionNextCmd(),
		sessionScrollCmd(),
		sessionDismissCmd(),
		sessionCloseCmd(),
	)

	return sessionRoot
}

func printView(cmd *cobra.Command, v *session.View, withItems bool) error {
	w := cmd.OutOrStdout()
	if jsonOutput() {
		return outputJSON(w, v)
	}
	if err := printSessionDetail(w, v); err != nil {
		return err
	}
	if withItems && len(v.Items) > 0 {
		fmt.Fprintln(w)
		return printItemsTable(w, v.Items, 0)
	}
	return nil
}

func sessionGetCmd() *cobra.Command {
	var (
		wait  bool
		items bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show session details",
		Example: `  sfctl session get 6f1c...
  sfctl session get 6f1c... --wait --items`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().GetSession(cmd.Context(), args[0], wait)
			if err != nil {
				return err
			}
			return printView(cmd, v, items)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait for an in-flight page first")
	cmd.Flags().BoolVar(&items, "items", false, "also list loaded items")

	return cmd
}

func sessionNextCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "next <id>",
		Short: "Request the next page",
		Long: "Request the next page of a session. Nothing is started while a page\n" +
			"is loading, after the catalog is exhausted or after a failure.",
		Example: `  sfctl session next 6f1c... --wait`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			started, err := c.NextPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !started {
				fmt.Fprintln(cmd.OutOrStdout(), "No page requested.")
				return nil
			}
			if !wait {
				fmt.Fprintln(cmd.OutOrStdout(), "Next page requested.")
				return nil
			}
			v, err := c.GetSession(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			return printView(cmd, v, false)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the page and show the session")

	return cmd
}

func sessionScrollCmd() *cobra.Command {
	var v scroll.Viewport

	cmd := &cobra.Command{
		Use:   "scroll <id>",
		Short: "Report a scroll position",
		Long: "Report a viewport sample for a session, as the storefront page does\n" +
			"while scrolling. The server debounces samples and loads the next page\n" +
			"when the viewport is near the bottom.",
		Example: `  sfctl session scroll 6f1c... --offset 1200 --viewport 800 --height 2100`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Scroll(cmd.Context(), args[0], v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scroll position accepted.")
			return nil
		},
	}

	cmd.Flags().Float64Var(&v.ScrollOffset, "offset", 0, "scroll offset in pixels")
	cmd.Flags().Float64Var(&v.ViewportHeight, "viewport", 0, "viewport height in pixels")
	cmd.Flags().Float64Var(&v.ScrollHeight, "height", 0, "total scrollable height in pixels")

	return cmd
}

func sessionDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dismiss <id>",
		Short:   "Dismiss the session's error dialog",
		Example: `  sfctl session dismiss 6f1c...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().DismissError(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printView(cmd, v, false)
		},
	}
}

func sessionCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "close <id>",
		Short:   "Close a session",
		Example: `  sfctl session close 6f1c...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().CloseSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s closed.\n", args[0])
			return nil
		},
	}
}
