package database

import (
	"strings"

	"github.com/koustreak/dbdeck/internal/errs"
)

// Engine identifies the backing data store. It is chosen at connect time and
// never changes for the lifetime of a connection.
type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgresql"
	EngineSQLite   Engine = "sqlite"
	EngineMongo    Engine = "mongodb"
)

// Engines lists every supported engine in display order.
var Engines = []Engine{EngineMySQL, EnginePostgres, EngineSQLite, EngineMongo}

// ParseEngine maps a user-supplied engine name to an Engine.
// Matching is case-insensitive and accepts common aliases.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "postgresql", "postgres", "pg":
		return EnginePostgres, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "mongodb", "mongo":
		return EngineMongo, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidConfig, "unknown database type %q", s)
}

func (e Engine) String() string { return string(e) }

// Valid reports whether e is one of the four supported engines.
func (e Engine) Valid() bool {
	switch e {
	case EngineMySQL, EnginePostgres, EngineSQLite, EngineMongo:
		return true
	}
	return false
}

// IsRelational reports whether e speaks SQL.
func (e Engine) IsRelational() bool {
	return e == EngineMySQL || e == EnginePostgres || e == EngineSQLite
}

// DefaultPort is the port used when a config leaves Port at zero.
// SQLite has no port.
func (e Engine) DefaultPort() int {
	switch e {
	case EngineMySQL:
		return 3306
	case EnginePostgres:
		return 5432
	case EngineMongo:
		return 27017
	}
	return 0
}

// DisplayName is the engine's product name, used in error messages.
func (e Engine) DisplayName() string {
	switch e {
	case EngineMySQL:
		return "MySQL"
	case EnginePostgres:
		return "PostgreSQL"
	case EngineSQLite:
		return "SQLite"
	case EngineMongo:
		return "MongoDB"
	}
	return string(e)
}

// UnmarshalText lets engines be decoded from JSON, YAML and koanf using any alias.
func (e *Engine) UnmarshalText(b []byte) error {
	parsed, err := ParseEngine(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalText renders the canonical engine name.
func (e Engine) MarshalText() ([]byte, error) {
	return []byte(e), nil
}
