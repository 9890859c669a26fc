package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/dashboard"
)

func newDashboardCmd(opts *options) *cobra.Command {
	var (
		interval time.Duration
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Watch the submission listing, polling for new entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			model := dashboard.NewModel(opts.client(), interval, pageSize)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "polling interval")
	cmd.Flags().IntVar(&pageSize, "page-size", dashboard.DefaultPageSize, "records per page")
	return cmd
}
