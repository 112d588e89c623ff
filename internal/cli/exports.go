package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/koustreak/dbdeck/internal/export"
	"github.com/spf13/cobra"
)

func newExportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Browse and download files written by export",
	}
	cmd.AddCommand(
		newExportsListCmd(a),
		newExportsGetCmd(a),
		newExportsURLCmd(a),
	)
	return cmd
}

// withExporter opens the configured sink for one command.
func (a *app) withExporter(cmd *cobra.Command, fn func(ctx context.Context, e *export.Exporter) error) error {
	store, err := export.OpenStore(cmd.Context(), &a.cfg.Export, a.log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), export.New(store, a.log))
}

func newExportsListCmd(a *app) *cobra.Command {
	var (
		prefix, format string
		limit          int
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List exported files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			return a.withExporter(cmd, func(ctx context.Context, e *export.Exporter) error {
				objs, err := e.List(ctx, prefix, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if format == formatJSON {
					return renderJSON(out, objs)
				}
				if len(objs) == 0 {
					_, _ = fmt.Fprintln(out, "(no exports)")
					return nil
				}

				t := newTable(out)
				t.AppendHeader(table.Row{"key", "size", "modified"})
				for _, o := range objs {
					t.AppendRow(table.Row{o.Key, o.Size, o.LastModified.Format(time.RFC3339)})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only keys starting with this prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of files (0: all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json)")
	return cmd
}

func newExportsGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Download an exported file to stdout or --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withExporter(cmd, func(ctx context.Context, e *export.Exporter) error {
				obj, err := e.Open(ctx, args[0])
				if err != nil {
					return err
				}
				defer obj.Close()

				if output == "" {
					_, err = io.Copy(cmd.OutOrStdout(), obj)
					return err
				}

				f, err := os.Create(output)
				if err != nil {
					return err
				}
				n, err := io.Copy(f, obj)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				a.log.Debugf("wrote %s (%d bytes) to %s", obj.Info().Key, n, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newExportsURLCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print a download link for an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withExporter(cmd, func(ctx context.Context, e *export.Exporter) error {
				info, err := e.Stat(ctx, args[0])
				if err != nil {
					return err
				}
				u, err := e.URL(ctx, info.Key, ttl)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", exportURLTTL, "link lifetime for remote sinks")
	return cmd
}
