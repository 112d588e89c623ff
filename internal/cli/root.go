// Package cli provides the dbdeck command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koustreak/dbdeck/internal/config"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/history"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/koustreak/dbdeck/internal/profile"
	"github.com/koustreak/dbdeck/internal/session"
	"github.com/spf13/cobra"
)

// PasswordEnv is read when --password is not given, keeping secrets out of
// shell history.
const PasswordEnv = "DBDECK_PASSWORD"

// app is the state shared by every command of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	conn    connFlags
}

type connFlags struct {
	profile        string
	engine         string
	host           string
	port           int
	user           string
	password       string
	database       string
	connectTimeout time.Duration
}

// NewRootCmd creates and returns the root command.
func NewRootCmd(version string) *cobra.Command {
	a := &app{log: logger.Nop()}

	root := &cobra.Command{
		Use:   "dbdeck",
		Short: "Connect to, inspect and query MySQL, PostgreSQL, SQLite and MongoDB",
		Long: `dbdeck is a multi-engine database client.

Connection details come from a saved profile (--profile) or from the
--engine/--host/--port/--user/--password/--database flags. Flags given
alongside --profile override the profile's values.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			lc := cfg.Logger()
			lc.Output = cmd.ErrOrStderr()
			a.log = logger.New(lc)
			if cfg.File != "" {
				a.log.Debugf("using config file %s", cfg.File)
			}
			cmd.SetContext(a.log.WithContext(cmd.Context()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	pf.String("log-level", "info", "log level (debug|info|warn|error)")
	pf.String("log-format", "console", "log format (console|json)")
	pf.String("profiles", "", "connection profiles file")

	pf.StringVarP(&a.conn.profile, "profile", "P", "", "saved connection profile")
	pf.StringVarP(&a.conn.engine, "engine", "e", "", "database engine ("+strings.Join(engineNames(), "|")+")")
	pf.StringVarP(&a.conn.host, "host", "H", "", "server host")
	pf.IntVarP(&a.conn.port, "port", "p", 0, "server port (default: engine default)")
	pf.StringVarP(&a.conn.user, "user", "u", "", "user name")
	pf.StringVar(&a.conn.password, "password", "", "password (default: $"+PasswordEnv+")")
	pf.StringVarP(&a.conn.database, "database", "d", "", "database name, or file path for SQLite")
	pf.DurationVar(&a.conn.connectTimeout, "connect-timeout", 0, "connect and ping timeout")

	_ = root.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return engineNames(), cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newPingCmd(a),
		newSchemaCmd(a),
		newQueryCmd(a),
		newPreviewCmd(a),
		newDatabasesCmd(a),
		newTablesCmd(a),
		newExportCmd(a),
		newExportsCmd(a),
		newProfileCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command and reports any error on stderr.
func Execute(ctx context.Context, version string) error {
	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func engineNames() []string {
	names := make([]string, len(database.Engines))
	for i, e := range database.Engines {
		names[i] = e.String()
	}
	return names
}

func (a *app) profiles() *profile.Store {
	return profile.NewStore(nil, a.cfg.Profiles)
}

// connectionConfig merges the selected profile with explicitly set flags.
func (a *app) connectionConfig(cmd *cobra.Command) (database.Config, error) {
	var cfg database.Config
	flags := cmd.Flags()

	if a.conn.profile != "" {
		p, err := a.profiles().Get(a.conn.profile)
		if err != nil {
			return cfg, err
		}
		cfg = p
	} else if a.conn.engine == "" {
		return cfg, errs.New(errs.ErrKindInvalidConfig, "either --profile or --engine is required")
	}

	if flags.Changed("engine") {
		e, err := database.ParseEngine(a.conn.engine)
		if err != nil {
			return cfg, err
		}
		cfg.Engine = e
	}
	if flags.Changed("host") {
		cfg.Host = a.conn.host
	}
	if flags.Changed("port") {
		cfg.Port = a.conn.port
	}
	if flags.Changed("user") {
		cfg.Username = a.conn.user
	}
	if flags.Changed("database") {
		cfg.Database = a.conn.database
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = a.conn.connectTimeout
	}

	switch {
	case flags.Changed("password"):
		cfg.Password = a.conn.password
	case cfg.Password == "":
		cfg.Password = os.Getenv(PasswordEnv)
	}

	if cfg.Engine != "" && cfg.Engine != database.EngineSQLite && cfg.Host == "" {
		cfg.Host = "localhost"
	}
	return cfg, nil
}

// open connects a fresh session for one command. The caller must Disconnect.
func (a *app) open(cmd *cobra.Command) (*session.Session, error) {
	cfg, err := a.connectionConfig(cmd)
	if err != nil {
		return nil, err
	}

	sess := session.New(a.log, history.New(a.cfg.History.Size))
	if err := sess.Connect(cmd.Context(), cfg); err != nil {
		return nil, err
	}
	return sess, nil
}

// withSession runs fn against a connected session and closes it afterwards.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	sess, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Disconnect(); err != nil {
			a.log.Warnf("disconnect: %v", err)
		}
	}()
	return fn(cmd.Context(), sess)
}
