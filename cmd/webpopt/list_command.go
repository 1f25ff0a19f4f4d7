package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"webpoptimizer/internal/assets"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var convertible bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				var (
					list []assets.Attachment
					err  error
				)
				if convertible {
					list, err = a.registry.ListConvertible(cmd.Context())
				} else {
					list, err = a.registry.List(cmd.Context(), assets.ListFilter{})
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No attachments registered")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, att := range list {
					replaced := ""
					if att.Replaced() {
						replaced = "#" + strconv.FormatInt(att.ReplacedBy.Int64, 10)
					}
					rows = append(rows, []string{
						strconv.FormatInt(att.ID, 10),
						att.Title,
						att.MimeType,
						att.Status,
						replaced,
						humanize.Time(att.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "MIME", "Status", "Replaced By", "Added"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&convertible, "convertible", false, "Only show JPEG/PNG attachments not converted yet")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print attachments as JSON")
	return cmd
}
