package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dbdeck/internal/database"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/export"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/logger"
)

type messageBody struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type switchRequest struct {
	Database string `json:"database"`
}

type exportRequest struct {
	Query  string `json:"query"`
	Format string `json:"format"`
	Name   string `json:"name"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var cfg database.Config
	if !decode(w, r, &cfg) {
		return
	}
	if err := s.sess.Connect(r.Context(), cfg); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Database connected successfully"})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Disconnect(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Database disconnected"})
}

func (s *Server) handleSwitchDatabase(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Database) == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidConfig, "database is required"))
		return
	}
	if err := s.sess.SwitchDatabase(r.Context(), req.Database); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Switched to database " + req.Database})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.sess.Config()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Test(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Connection is alive"})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.sess.Schema(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.sess.Execute(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	page, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.sess.Preview(r.Context(), table, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// pageParams reads limit, offset, columns (comma separated), order_by and
// desc from the query string.
func pageParams(r *http.Request) (database.Page, error) {
	var (
		p   database.Page
		err error
	)
	if p.Limit, err = intParam(r, "limit"); err != nil {
		return p, err
	}
	if p.Offset, err = intParam(r, "offset"); err != nil {
		return p, err
	}

	q := r.URL.Query()
	if cols := q.Get("columns"); cols != "" {
		p.Columns = strings.Split(cols, ",")
	}
	p.OrderBy = q.Get("order_by")
	if raw := q.Get("desc"); raw != "" {
		if p.Desc, err = strconv.ParseBool(raw); err != nil {
			return p, errs.Newf(errs.ErrKindInvalidConfig, "desc must be a boolean, got %q", raw)
		}
	}
	return p, nil
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := s.sess.ListDatabases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	names, err := s.sess.ListTables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.History().List())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.sess.History().Clear()
	writeJSON(w, http.StatusOK, messageBody{Message: "Query history cleared"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.canExport(w, r) {
		return
	}

	var req exportRequest
	if !decode(w, r, &req) {
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.sess.Execute(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := s.exporter.Export(r.Context(), res, format, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if !s.canExport(w, r) {
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	objs, err := s.exporter.List(r.Context(), r.URL.Query().Get("prefix"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	if !s.canExport(w, r) {
		return
	}
	obj, err := s.exporter.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer obj.Close()

	objectHeaders(w, obj.Info())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(obj.Info().Key)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		logger.FromContext(r.Context()).Warnf("export download interrupted: %v", err)
	}
}

func (s *Server) handleStatExport(w http.ResponseWriter, r *http.Request) {
	if !s.canExport(w, r) {
		return
	}
	info, err := s.exporter.Stat(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		w.WriteHeader(statusFor(errs.KindOf(err)))
		return
	}
	objectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) canExport(w http.ResponseWriter, r *http.Request) bool {
	if s.exporter == nil {
		writeError(w, r, errs.New(errs.ErrKindUnsupported, "no export sink is configured"))
		return false
	}
	return true
}

func objectHeaders(w http.ResponseWriter, info *filestore.ObjectInfo) {
	h := w.Header()
	h.Set("Content-Type", info.ContentType)
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if !info.LastModified.IsZero() {
		h.Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	if info.ETag != "" {
		h.Set("ETag", strconv.Quote(info.ETag))
	}
}

// --- helpers ---

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, errs.Wrap(errs.ErrKindInvalidConfig, "invalid request body", err))
		return false
	}
	return true
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Newf(errs.ErrKindInvalidConfig, "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]any{"kind": kind.String()})
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotConnected:
		return http.StatusConflict
	case errs.ErrKindInvalidConfig, errs.ErrKindUnsupported:
		return http.StatusBadRequest
	case errs.ErrKindQueryFailed:
		return http.StatusUnprocessableEntity
	case errs.ErrKindSchemaFailed, errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
