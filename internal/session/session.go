// Package session is the application context that owns the single active
// connection handle.
//
// Every operation takes the lock only long enough to copy the handle
// pointer, then performs its I/O unlocked. A disconnect may therefore race
// an in-flight query; the query then fails with a connection error.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/dbdeck/internal/conn"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/history"
	"github.com/koustreak/dbdeck/internal/logger"
)

// Session holds at most one active handle and the config it was built from.
// It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	handle *conn.Handle
	cfg    *database.Config

	history *history.Log
	log     *logger.Logger
}

// New returns a disconnected session. A nil hist gets a default-sized log.
func New(log *logger.Logger, hist *history.Log) *Session {
	if log == nil {
		log = logger.Nop()
	}
	if hist == nil {
		hist = history.New(history.DefaultSize)
	}
	return &Session{history: hist, log: log.ForComponent("session")}
}

// Connect establishes a new handle and makes it the active one. The previous
// handle, if any, is closed only after the swap; on failure it stays active.
func (s *Session) Connect(ctx context.Context, cfg database.Config) error {
	h, err := conn.Connect(ctx, cfg, s.log)
	if err != nil {
		return err
	}
	cfg = cfg.WithDefaults()

	s.mu.Lock()
	old := s.handle
	s.handle, s.cfg = h, &cfg
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warnf("closing previous connection: %v", err)
		}
	}

	s.log.Infof("connected to %s", cfg.Engine.DisplayName())
	return nil
}

// SwitchDatabase reconnects with the active config pointed at another
// database (another file for SQLite).
func (s *Session) SwitchDatabase(ctx context.Context, name string) error {
	cfg, ok := s.Config()
	if !ok {
		return errs.NotConnected()
	}
	cfg.Database = name
	return s.Connect(ctx, cfg)
}

// Disconnect closes the active handle and forgets its config. Disconnecting
// an idle session is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	h := s.handle
	s.handle, s.cfg = nil, nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	s.log.Info("disconnected")
	return h.Close()
}

// Config returns a copy of the active config, including the password.
func (s *Session) Config() (database.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return database.Config{}, false
	}
	return *s.cfg, true
}

// Connected reports whether a handle is active.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// History returns the session's query log.
func (s *Session) History() *history.Log {
	return s.history
}

// current copies the active handle and config under the lock.
func (s *Session) current() (*conn.Handle, database.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, database.Config{}, errs.NotConnected()
	}
	return s.handle, *s.cfg, nil
}

// Test re-pings the active connection.
func (s *Session) Test(ctx context.Context) error {
	h, _, err := s.current()
	if err != nil {
		return err
	}
	return h.Test(ctx)
}

// Schema introspects the active database.
func (s *Session) Schema(ctx context.Context) (*database.Schema, error) {
	h, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.Schema(ctx)
}

// Execute runs query on the active handle and records it in the query log.
func (s *Session) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	h, cfg, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := h.Execute(ctx, query)

	entry := history.Entry{
		Query:    query,
		Database: cfg.Database,
		Engine:   cfg.Engine,
		Status:   history.StatusSuccess,
		Duration: time.Since(start),
	}
	if err != nil {
		entry.Status = history.StatusError
		entry.Error = err.Error()
		s.history.Record(entry)
		s.log.ErrorWith("query failed", err, map[string]any{"engine": cfg.Engine.String()})
		return nil, err
	}

	entry.RowCount = res.RowCount
	s.history.Record(entry)
	return res, nil
}

// Preview returns one page of a table's rows.
func (s *Session) Preview(ctx context.Context, table string, p database.Page) (*database.QueryResult, error) {
	h, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.Preview(ctx, table, p)
}

// ListDatabases lists database names on the active connection.
func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	h, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.ListDatabases(ctx)
}

// ListTables lists tables, or collections, of the active database.
func (s *Session) ListTables(ctx context.Context) ([]string, error) {
	h, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.ListTables(ctx)
}
