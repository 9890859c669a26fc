package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/submitform"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		name   string
		handle string
		images []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a name, a social handle and one or more images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier := notify.NewWriterNotifier(cmd.ErrOrStderr())
			form := submitform.New(opts.client(), notifier)

			if err := form.SetName(name); err != nil {
				return err
			}
			if err := form.SetSocialHandle(handle); err != nil {
				return err
			}
			if len(images) > 0 {
				uploads, err := submitform.ReadImages(images...)
				if err != nil {
					return err
				}
				if err := form.SetImages(uploads); err != nil {
					return err
				}
				for _, p := range form.Previews() {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s (%s, %d bytes)\n", p.Filename, p.ContentType, p.Size)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			sub, err := form.Submit(ctx)
			if err != nil {
				if errors.Is(err, submitform.ErrIncomplete) {
					return err
				}
				return fmt.Errorf("submit: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", sub.ID)
			for _, ref := range sub.Images {
				fmt.Fprintf(cmd.OutOrStdout(), "image: %s\n", ref)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "submitter name")
	cmd.Flags().StringVar(&handle, "handle", "", "social media handle")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image file to upload (repeatable)")
	return cmd
}
