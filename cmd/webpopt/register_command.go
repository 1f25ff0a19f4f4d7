package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"webpoptimizer/internal/storage"
)

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var copyIn bool

	cmd := &cobra.Command{
		Use:   "register <file>...",
		Short: "Add files to the asset registry",
		Long: "Register records files under the data directory as managed assets. With --copy,\n" +
			"files outside the data directory are first copied into the uploads directory.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				rows := make([][]string, 0, len(args))
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve path: %w", err)
					}
					info, err := os.Stat(path)
					if err != nil {
						return fmt.Errorf("inspect file: %w", err)
					}
					if info.IsDir() {
						return fmt.Errorf("%s is a directory", path)
					}

					if !a.library.Contains(path) {
						if !copyIn {
							return fmt.Errorf("%s is outside %s (use --copy)", path, a.library.BaseDir)
						}
						if path, err = copyIntoLibrary(a.library, path); err != nil {
							return err
						}
					}

					url, err := a.library.URL(a.cfg.Server.SiteURL, path)
					if err != nil {
						return err
					}
					att, err := a.registry.Register(cmd.Context(), path, url)
					if err != nil {
						return err
					}
					rows = append(rows, []string{strconv.FormatInt(att.ID, 10), att.FilePath, att.MimeType})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "File", "MIME"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&copyIn, "copy", false, "Copy files from outside the data directory into uploads")
	return cmd
}

func copyIntoLibrary(lib *storage.Storage, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	dst := storage.UniquePath(lib.UploadsDir(), filepath.Base(src))
	if err := storage.AtomicWrite(dst, f); err != nil {
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	return dst, nil
}
