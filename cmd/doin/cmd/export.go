package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
	"github.com/templui/doin/internal/export"
)

func ExportCmd() *cobra.Command {
	var (
		format string
		out    string
		upload bool
	)

	cmd := &cobra.Command{
		Use:   "export <challenge-id>",
		Short: "Export a challenge report as CSV or shareable text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "challenge")
			if err != nil {
				return err
			}
			if format != "csv" && format != "text" {
				return fmt.Errorf("unknown format %q (want csv or text)", format)
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if upload {
					url, err := a.EventService.PublishReport(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), url)
					return nil
				}

				report, _, err := a.EventService.Report(ctx, id)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				if err := writeReport(w, report, format); err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or text")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the CSV to report storage and print a download link")
	return cmd
}

func writeReport(w io.Writer, r *export.Report, format string) error {
	if format == "text" {
		return r.WriteText(w)
	}
	return r.WriteCSV(w)
}
