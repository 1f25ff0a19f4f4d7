package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"webpoptimizer/internal/batch"
	"webpoptimizer/internal/config"
	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/security"
)

func newBulkCommand(ctx *commandContext) *cobra.Command {
	var quality int
	var all bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "bulk [id...]",
		Short: "Convert registered attachments and replace them with their WebP copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass attachment ids or --all")
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid attachment id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withApp(cmd, func(a *app) error {
				q := a.cfg.Conversion.Quality
				if cmd.Flags().Changed("quality") {
					q = config.ClampQuality(quality)
				}

				progress := func(done, total int) {
					if !jsonOut {
						fmt.Fprintf(cmd.ErrOrStderr(), "\rconverted %d/%d", done, total)
						if done == total {
							fmt.Fprintln(cmd.ErrOrStderr())
						}
					}
				}
				runner := a.runner(progress)

				var (
					report *batch.Report
					err    error
				)
				if all {
					report, err = runner.RunAll(cmd.Context(), security.Operator, q)
				} else {
					report, err = runner.Run(cmd.Context(), security.Operator, ids, q)
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, report)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&quality, "quality", "q", pipeline.DefaultWebPQuality, "WebP quality (0-100)")
	cmd.Flags().BoolVar(&all, "all", false, "Convert every JPEG/PNG attachment not converted yet")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func renderReport(report *batch.Report) string {
	rows := make([][]string, 0, len(report.Items))
	for _, it := range report.Items {
		newID := ""
		if it.NewAttachmentID != 0 {
			newID = strconv.FormatInt(it.NewAttachmentID, 10)
		}
		size := ""
		if it.Bytes > 0 {
			size = humanize.Bytes(uint64(it.Bytes))
		}
		detail := it.Output
		if it.Error != "" {
			detail = it.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(it.AttachmentID, 10),
			string(it.Outcome),
			newID,
			size,
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Outcome", "New ID", "Size", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
}
