// Package server exposes the session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/dbdeck/internal/config"
	"github.com/koustreak/dbdeck/internal/export"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/koustreak/dbdeck/internal/session"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes caps request bodies; queries are text, not uploads.
const maxBodyBytes = 1 << 20

// Options holds the server's dependencies. Exporter may be nil, in which
// case the export endpoint reports the operation as unsupported.
type Options struct {
	Session  *session.Session
	Exporter *export.Exporter
	Logger   *logger.Logger
	Config   config.ServerConfig
}

// Server is the HTTP command layer.
type Server struct {
	sess     *session.Session
	exporter *export.Exporter
	log      *logger.Logger
	cfg      config.ServerConfig
	router   chi.Router
}

// New builds a server and its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New(log, nil)
	}

	s := &Server{
		sess:     sess,
		exporter: opts.Exporter,
		log:      log.ForComponent("server"),
		cfg:      opts.Config,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.log),
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/switch-database", s.handleSwitchDatabase)
		r.Get("/config", s.handleConfig)
		r.Get("/ping", s.handlePing)
		r.Get("/schema", s.handleSchema)
		r.Post("/query", s.handleQuery)
		r.Get("/preview/{table}", s.handlePreview)
		r.Get("/databases", s.handleDatabases)
		r.Get("/tables", s.handleTables)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Post("/export", s.handleExport)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/*", s.handleDownloadExport)
		r.Head("/exports/*", s.handleStatExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Kind: "not_found"})
	})
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully within ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = config.DefaultAddr
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	eg.Go(func() error {
		s.log.Infof("listening on http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.log.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger emits one event per request and hands a request-scoped
// logger to handlers through the context.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.Request(r.Method, r.URL.Path, status, time.Since(start), reqID)
			}()

			ctx := log.With().Str("request_id", reqID).Logger().WithContext(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
