package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"naturezabrindes/quote_backend/internal/client/apiclient"
	"naturezabrindes/quote_backend/internal/domain/intake"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

func newSubmitCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a quote request from a JSON file",
		Long: `Submit a storefront checkout payload.

The file holds {"customerData": {...}, "items": [...], "notes": "..."}.
Use "-" to read it from stdin.

Examples:
  quotectl submit --file cart.json
  cat cart.json | quotectl submit --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var req intake.Request
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("read request: %w", err)
			}

			created, err := opts.client().CreateQuote(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), created)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s id=%s status=%s\n", created.Reference, created.ID, created.Status)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "request JSON file")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var lo apiclient.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := opts.client().ListQuotes(cmd.Context(), lo)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return printPage(cmd.OutOrStdout(), page)
		},
	}
	f := cmd.Flags()
	f.IntVar(&lo.Page, "page", 1, "page number")
	f.IntVar(&lo.Limit, "limit", quote.DefaultLimit, "quotes per page")
	f.StringVar(&lo.SortBy, "sort", "created_at", "sort column")
	f.StringVar(&lo.SortOrder, "order", "desc", "sort order (asc|desc)")
	f.StringVar(&lo.Status, "status", "all", "status filter")
	return cmd
}

// quoteCommand runs fn for a single quote id and prints the returned quote.
func quoteCommand(opts *RootOptions, use, short string, fn func(cmd *cobra.Command, c *apiclient.Client, args []string) (apiclient.StoredQuote, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := fn(cmd, opts.client(), args)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), q)
			}
			printQuote(cmd.OutOrStdout(), q)
			return nil
		},
	}
}

func newGetCommand(opts *RootOptions) *cobra.Command {
	return quoteCommand(opts, "get <id>", "Show one quote", func(cmd *cobra.Command, c *apiclient.Client, args []string) (apiclient.StoredQuote, error) {
		return c.GetQuote(cmd.Context(), args[0])
	})
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	cmd := quoteCommand(opts, "status <id> <status>", "Change a quote status", func(cmd *cobra.Command, c *apiclient.Client, args []string) (apiclient.StoredQuote, error) {
		st, ok := quote.ParseStatus(args[1])
		if !ok {
			return apiclient.StoredQuote{}, fmt.Errorf("invalid status %q: must be one of %v", args[1], quote.Statuses)
		}
		return c.UpdateQuoteStatus(cmd.Context(), args[0], st)
	})
	cmd.Args = cobra.ExactArgs(2)
	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return quoteCommand(opts, "delete <id>", "Delete a quote and its items", func(cmd *cobra.Command, c *apiclient.Client, args []string) (apiclient.StoredQuote, error) {
		return c.DeleteQuote(cmd.Context(), args[0])
	})
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.client().DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(w, d)
			}
			s := d.Summary
			fmt.Fprintf(w, "total=%d pending=%d approved=%d rejected=%d completed=%d\n", s.Total, s.Pending, s.Approved, s.Rejected, s.Completed)
			for _, r := range d.RecentQuotes {
				fmt.Fprintf(w, "  %s  %s  %s  %s\n", r.Reference, r.Status, r.CustomerName, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newEmailTestCommand(opts *RootOptions) *cobra.Command {
	var req apiclient.TestEmail
	cmd := &cobra.Command{
		Use:   "email-test <to>",
		Short: "Send a test email through the active transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.To = args[0]
			res, err := opts.client().SendTestEmail(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent outbox_id=%d message_id=%s\n", res.OutboxID, res.ProviderMessageID)
			return err
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "recipient name")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&req.HTMLContent, "html", "", "HTML body")
	return cmd
}
