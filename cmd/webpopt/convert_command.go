package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"webpoptimizer/internal/config"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/upload"
)

type convertResult struct {
	Source  string           `json:"source"`
	Output  string           `json:"output,omitempty"`
	Outcome pipeline.Outcome `json:"outcome"`
	Error   string           `json:"error,omitempty"`
	Width   int              `json:"width,omitempty"`
	Height  int              `json:"height,omitempty"`
	Bytes   int64            `json:"bytes,omitempty"`
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var quality int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Write a WebP copy next to each JPEG or PNG file",
		Long: "Convert writes <name>.webp next to every given JPEG or PNG file. Existing WebP files\n" +
			"are never overwritten and the source files are left in place.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				q := a.cfg.Conversion.Quality
				if cmd.Flags().Changed("quality") {
					q = config.ClampQuality(quality)
				}

				results := make([]convertResult, 0, len(args))
				failed := 0
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve path: %w", err)
					}
					res := a.converter.Convert(path, q)
					_ = a.metrics.RecordConversion(cmd.Context(), metrics.Conversion{
						Event:   metrics.EventCLI,
						Outcome: upload.OutcomeBucket(res.Outcome),
						Bytes:   res.Bytes,
					})
					if !res.Outcome.Produced() && !res.Outcome.Skip() {
						failed++
					}
					results = append(results, toConvertResult(res))
				}

				if jsonOut {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderConvertResults(results))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed to convert", failed, len(results))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&quality, "quality", "q", pipeline.DefaultWebPQuality, "WebP quality (0-100)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

func toConvertResult(res pipeline.Result) convertResult {
	out := convertResult{
		Source:  res.Source,
		Output:  res.Output,
		Outcome: res.Outcome,
		Width:   res.Width,
		Height:  res.Height,
		Bytes:   res.Bytes,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func renderConvertResults(results []convertResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		size := ""
		dims := ""
		if r.Outcome.Produced() {
			size = humanize.Bytes(uint64(r.Bytes))
			dims = strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
		}
		detail := r.Output
		if r.Error != "" {
			detail = r.Error
		}
		rows = append(rows, []string{r.Source, string(r.Outcome), detail, dims, size})
	}
	return renderTable(
		[]string{"File", "Outcome", "Output", "Dimensions", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}
