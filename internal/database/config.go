package database

import (
	"context"
	"time"

	"github.com/koustreak/dbdeck/internal/errs"
)

// DefaultMongoDatabase is used when a MongoDB config names no database.
const DefaultMongoDatabase = "admin"

// Config holds everything needed to connect to and pool one engine.
// It is built by the caller and treated as immutable once passed to Connect.
type Config struct {
	// Engine is the database engine (e.g. EnginePostgres).
	Engine Engine `json:"db_type" yaml:"engine"`

	Host     string `json:"host" yaml:"host,omitempty"`
	Port     int    `json:"port" yaml:"port,omitempty"`
	Username string `json:"username" yaml:"username,omitempty"`
	Password string `json:"password" yaml:"password,omitempty"`

	// Database is the default database/schema. Empty means "none" for MySQL
	// and PostgreSQL and DefaultMongoDatabase for MongoDB.
	// For SQLite it is the database file path and is mandatory.
	Database string `json:"database" yaml:"database,omitempty"`

	// Pool tuning
	MaxConns        int32         `json:"-" yaml:"max_conns,omitempty"`          // maximum number of connections in the pool
	MinConns        int32         `json:"-" yaml:"min_conns,omitempty"`          // minimum number of idle connections kept alive
	MaxConnLifetime time.Duration `json:"-" yaml:"max_conn_lifetime,omitempty"`  // maximum time a connection may be reused
	MaxConnIdleTime time.Duration `json:"-" yaml:"max_conn_idle_time,omitempty"` // maximum time a connection may sit idle

	// ConnectTimeout bounds pool creation plus the liveness check.
	ConnectTimeout time.Duration `json:"-" yaml:"connect_timeout,omitempty"`
}

// DefaultConfig returns pool settings sized for an interactive client:
// few connections, short idle lifetime.
func DefaultConfig(engine Engine) *Config {
	return &Config{
		Engine:          engine,
		Host:            "localhost",
		Port:            engine.DefaultPort(),
		MaxConns:        5,
		MinConns:        0,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Validate checks the fields each engine requires.
func (c *Config) Validate() error {
	if !c.Engine.Valid() {
		return errs.Newf(errs.ErrKindInvalidConfig, "unknown database type %q", c.Engine)
	}
	if c.Engine == EngineSQLite {
		if c.Database == "" {
			return errs.New(errs.ErrKindInvalidConfig, "SQLite requires a database file path")
		}
		return nil
	}
	if c.Host == "" {
		return errs.Newf(errs.ErrKindInvalidConfig, "%s requires a host", c.Engine.DisplayName())
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindInvalidConfig, "port %d out of range", c.Port)
	}
	return nil
}

// WithDefaults returns a copy with zero-valued port and pool settings filled in.
func (c Config) WithDefaults() Config {
	def := DefaultConfig(c.Engine)
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.MaxConns == 0 {
		c.MaxConns = def.MaxConns
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = def.MaxConnLifetime
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	return c
}

// Redacted returns a copy safe to log or hand back to a UI.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// PingContext bounds a connect-time ping by ConnectTimeout. A zero timeout
// leaves ctx's own deadline in charge.
func (c *Config) PingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, c.ConnectTimeout)
	}
	return context.WithCancel(ctx)
}
