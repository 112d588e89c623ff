package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/export"
	"github.com/koustreak/dbdeck/internal/history"
	"github.com/koustreak/dbdeck/internal/server"
	"github.com/koustreak/dbdeck/internal/session"
	"github.com/spf13/cobra"
)

// exportURLTTL is how long a presigned export link stays valid.
const exportURLTTL = 24 * time.Hour

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect and verify the database answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				if err := s.Test(ctx); err != nil {
					return err
				}
				cfg, _ := s.Config()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s %s\n", cfg.Engine.DisplayName(), target(cfg))
				return nil
			})
		},
	}
}

func target(cfg database.Config) string {
	if cfg.Engine == database.EngineSQLite {
		return cfg.Database
	}
	s := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.Database != "" {
		s += "/" + cfg.Database
	}
	return s
}

func newSchemaCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show tables and columns of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				schema, err := s.Schema(ctx)
				if err != nil {
					return err
				}
				return renderSchema(cmd.OutOrStdout(), schema, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json)")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute a statement and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatCSV); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				res, err := s.Execute(ctx, args[0])
				if err != nil {
					return err
				}
				logEntry(a, s)
				return renderResult(cmd.OutOrStdout(), res, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json|csv)")
	return cmd
}

// logEntry reports the newest query log entry at debug level.
func logEntry(a *app, s *session.Session) {
	entries := s.History().List()
	if len(entries) == 0 {
		return
	}
	e := entries[0]
	a.log.DebugWith("query finished", map[string]any{
		"id":                e.ID,
		"status":            string(e.Status),
		"rows":              e.RowCount,
		"execution_time_ms": e.DurationMS,
	})
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		format string
		page   database.Page
	)
	cmd := &cobra.Command{
		Use:   "preview <table>",
		Short: "Show a page of rows from a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatCSV); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				res, err := s.Preview(ctx, args[0], page)
				if err != nil {
					return err
				}
				return renderResult(cmd.OutOrStdout(), res, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json|csv)")
	cmd.Flags().IntVarP(&page.Limit, "limit", "n", database.DefaultPreviewLimit, "rows per page")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringSliceVarP(&page.Columns, "columns", "c", nil, "columns to show (default: all)")
	cmd.Flags().StringVar(&page.OrderBy, "order-by", "", "sort column")
	cmd.Flags().BoolVar(&page.Desc, "desc", false, "sort descending")
	return cmd
}

func newDatabasesCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List databases on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				names, err := s.ListDatabases(ctx)
				if err != nil {
					return err
				}
				return renderNames(cmd.OutOrStdout(), names, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json)")
	return cmd
}

func newTablesCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"collections"},
		Short:   "List tables, or collections, of the database",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				names, err := s.ListTables(ctx)
				if err != nil {
					return err
				}
				return renderNames(cmd.OutOrStdout(), names, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table|json)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format, name string
	cmd := &cobra.Command{
		Use:   "export <sql>",
		Short: "Execute a statement and upload the result as CSV or JSON",
		Long: `Execute a statement and upload the result to the configured export sink,
a local directory (export.dir) or a MinIO bucket (export.provider: minio).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return a.withExporter(cmd, func(_ context.Context, e *export.Exporter) error {
				return a.withSession(cmd, func(ctx context.Context, s *session.Session) error {
					res, err := s.Execute(ctx, args[0])
					if err != nil {
						return err
					}
					info, err := e.Export(ctx, res, f, name)
					if err != nil {
						return err
					}

					out := cmd.OutOrStdout()
					_, _ = fmt.Fprintf(out, "exported %d rows to %s (%d bytes)\n", res.RowCount, info.Key, info.Size)
					if u, err := e.URL(ctx, info.Key, exportURLTTL); err == nil {
						_, _ = fmt.Fprintln(out, u)
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "file format (csv|json)")
	cmd.Flags().StringVar(&name, "name", "", "object key (default: query_results-<timestamp>.<ext>)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the JSON HTTP API. Clients connect through POST /api/connect;
connection flags, when given, open a connection at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess := session.New(a.log, history.New(a.cfg.History.Size))
			defer sess.Disconnect()

			if a.conn.profile != "" || a.conn.engine != "" {
				cfg, err := a.connectionConfig(cmd)
				if err != nil {
					return err
				}
				if err := sess.Connect(ctx, cfg); err != nil {
					return err
				}
			}

			var exporter *export.Exporter
			store, err := export.OpenStore(ctx, &a.cfg.Export, a.log)
			if err != nil {
				a.log.Warnf("export disabled: %v", err)
			} else {
				defer store.Close()
				exporter = export.New(store, a.log)
			}

			srv := server.New(server.Options{
				Session:  sess,
				Exporter: exporter,
				Logger:   a.log,
				Config:   a.cfg.Server,
			})
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	return cmd
}
