// Package cli implements quotectl, a command line client for the quote API.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"naturezabrindes/quote_backend/internal/client/apiclient"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	BaseURL  string
	Token    string
	Format   string // "json" | "text"
	Attempts int
	Timeout  time.Duration
}

var ValidFormats = []string{"text", "json"}

func (o *RootOptions) client() *apiclient.Client {
	return apiclient.New(o.BaseURL,
		apiclient.WithToken(o.Token),
		apiclient.WithMaxAttempts(o.Attempts),
		apiclient.WithAttemptTimeout(o.Timeout),
	)
}

// NewRootCommand builds quotectl. baseURL and token are flag defaults,
// usually API_BASE_URL and INTERNAL_TOKEN.
func NewRootCommand(baseURL, token string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quotectl",
		Short: "Quote API client",
		Long:  "Submit and administer quote requests through the HTTP API with automatic retries.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.BaseURL == "" {
				return fmt.Errorf("missing --api (or API_BASE_URL)")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.BaseURL, "api", baseURL, "API base URL, e.g. http://localhost:8080/api")
	pf.StringVar(&opts.Token, "token", token, "internal token for admin routes")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.IntVar(&opts.Attempts, "attempts", apiclient.DefaultMaxAttempts, "attempts per request")
	pf.DurationVar(&opts.Timeout, "timeout", apiclient.DefaultAttemptTimeout, "timeout per attempt")

	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newEmailTestCommand(opts))

	return cmd
}
