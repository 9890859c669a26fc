package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/dashboard"
)

func newListCmd(opts *options) *cobra.Command {
	var (
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the submission listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			table := dashboard.NewTable(opts.client(), nil, pageSize)
			if err := table.Refresh(ctx); err != nil {
				return fmt.Errorf("%s: %w", dashboard.MsgFetchFailed, err)
			}
			if !table.GoTo(page) {
				return fmt.Errorf("page %d out of range (1-%d)", page, table.Pages())
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, dashboard.RenderRows(table.Rows()))
			from, to := table.Range()
			fmt.Fprintf(out, "\nShowing %d-%d of %d · page %d/%d\n",
				from, to, table.Total(), table.Page(), table.Pages())
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", dashboard.DefaultPageSize, "records per page")
	return cmd
}
