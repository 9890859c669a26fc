// Package main implements submitctl, the terminal front end of the
// submission server: it submits entries and browses the listing.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/client"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	serverURL string
	timeout   time.Duration
}

func (o *options) client() *client.Client {
	return client.New(o.serverURL)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "submitctl",
		Short: "Submit entries and browse the submission listing",
		Long: `submitctl talks to the submission server over HTTP.

Examples:
  # Submit an entry with two images
  submitctl submit --name "Ada" --handle @ada --image a.png --image b.jpg

  # Print the second page of the listing
  submitctl list --page 2

  # Watch the listing live
  submitctl dashboard --interval 5s`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", "http://localhost:5000", "submission server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(newSubmitCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newDashboardCmd(opts))
	return root
}
