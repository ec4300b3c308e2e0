// Package web serves the household pages: a dashboard, a list, add and edit
// forms, and a detail page for every domain.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/form"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the Ghar web UI.
func NewServer(eng *form.Engine, cfg *config.Config, logger *slog.Logger, version, bind string, port int) (*http.Server, error) {
	h, err := newHandlers(eng, cfg, logger, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(eng *form.Engine, cfg *config.Config, logger *slog.Logger, version string) (*Handlers, error) {
	// Strip the "templates/" prefix so pages are parsed by file name.
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create template sub-FS")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		eng:      eng,
		cfg:      cfg,
		logger:   logger,
		renderer: NewRenderer(templateSub, version, logger),
	}, nil
}

// routes builds the handler tree. Static files sit on an outer mux so their
// prefix does not overlap the /{domain}/{id} patterns.
func (h *Handlers) routes() http.Handler {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", h.HandleDashboard)
	app.HandleFunc("GET /search", h.HandleSearch)
	app.HandleFunc("GET /{domain}", h.HandleList)
	app.HandleFunc("POST /{domain}", h.HandleSubmit)
	app.HandleFunc("GET /{domain}/new", h.HandleNew)
	app.HandleFunc("GET /{domain}/{id}", h.HandleDetail)
	app.HandleFunc("POST /{domain}/{id}", h.HandleEdit)
	app.HandleFunc("DELETE /{domain}/{id}", h.HandleDelete)
	app.HandleFunc("GET /{domain}/{id}/edit", h.HandleEditForm)
	// HTML forms cannot send DELETE.
	app.HandleFunc("POST /{domain}/{id}/delete", h.HandleDelete)
	app.HandleFunc("POST /{domain}/{id}/maintenance", h.HandleMaintenance)

	root := http.NewServeMux()
	root.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	root.Handle("/", app)

	return securityHeaders(root)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Ghar UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
