package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved connection profiles",
	}
	cmd.AddCommand(
		newProfileSaveCmd(a),
		newProfileListCmd(a),
		newProfileShowCmd(a),
		newProfileRmCmd(a),
	)
	return cmd
}

func newProfileSaveCmd(a *app) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the connection flags as a named profile",
		Example: `  dbdeck profile save local-pg -e postgresql -H localhost -u app -d app
  dbdeck profile save scratch -e sqlite -d ./scratch.db --verify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.connectionConfig(cmd)
			if err != nil {
				return err
			}
			if verify {
				sess, err := a.open(cmd)
				if err != nil {
					return err
				}
				_ = sess.Disconnect()
			}

			store := a.profiles()
			if err := store.Save(args[0], cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q to %s\n", args[0], store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "connect before saving")
	return cmd
}

func newProfileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.profiles()
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no profiles)")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"name", "engine", "target"})
			for _, n := range names {
				cfg, err := store.Get(n)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{n, cfg.Engine.DisplayName(), target(cfg.WithDefaults())})
			}
			t.Render()
			return nil
		},
	}
}

func newProfileShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved profile with its password redacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.profiles().Get(args[0])
			if err != nil {
				return err
			}
			cfg = cfg.Redacted()

			t := newTable(cmd.OutOrStdout())
			t.SetTitle(args[0])
			t.AppendRows([]table.Row{
				{"engine", cfg.Engine.DisplayName()},
				{"host", cfg.Host},
				{"port", strconv.Itoa(cfg.Port)},
				{"username", cfg.Username},
				{"password", cfg.Password},
				{"database", cfg.Database},
			})
			t.Render()
			return nil
		},
	}
}

func newProfileRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.profiles().Delete(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %q\n", args[0])
			return nil
		},
	}
}
