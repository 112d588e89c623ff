package mongo

import (
	"net"
	"net/url"
	"strconv"

	"github.com/koustreak/dbdeck/internal/database"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// buildURI renders cfg as a mongodb:// URI. Credentials are omitted when no
// username is configured. The configured database becomes the URI path, and
// with it the default authentication source; without one, users
// authenticate against admin.
func buildURI(cfg *database.Config) string {
	u := &url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// databaseName is the configured database, or the administrative default.
func databaseName(cfg *database.Config) string {
	if cfg.Database == "" {
		return database.DefaultMongoDatabase
	}
	return cfg.Database
}

// clientOptions maps pool tuning onto the driver's client options.
func clientOptions(cfg *database.Config) *options.ClientOptionsBuilder {
	opts := options.Client().ApplyURI(buildURI(cfg))
	if cfg.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.MinConns))
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	return opts
}
