package mysql

import (
	"database/sql"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
)

// buildConfig maps a dbdeck config onto the driver's connection settings.
// parseTime makes DATE, DATETIME and TIMESTAMP arrive as time.Time.
func buildConfig(cfg *database.Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	return mc
}

// buildPool configures and returns a *sql.DB with pool settings.
// No connection is made until the first use.
func buildPool(cfg *database.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(buildConfig(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "invalid MySQL config", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MaxConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	return db, nil
}
