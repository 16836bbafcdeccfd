// Package proxy implements the CORS proxy that relays authenticated
// attachment downloads to the player.
package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthHeader carries the upstream Authorization value.
const AuthHeader = "x-trello-auth"

const (
	allowMethods = "GET,HEAD,POST,OPTIONS"
	maxAge       = "86400"
)

// Server is the proxy HTTP service.
type Server struct {
	config Config
	router *chi.Mux
	client *http.Client
}

// New creates a proxy server.
func New(cfg Config) *Server {
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		client: &http.Client{Timeout: cfg.Timeout},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.HandleFunc("/", s.handleProxy)
	r.HandleFunc("/*", s.handleProxy)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Proxy listening", "addr", s.config.Listen, "origins", strings.Join(s.config.AllowedOrigins, ","))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		forbidden(w)
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" || !s.originAllowed(origin) {
		log.Debug("Rejected origin", "origin", origin)
		forbidden(w)
		return
	}

	if r.Method == http.MethodOptions {
		h := w.Header()
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Max-Age", maxAge)
		h.Set("Access-Control-Allow-Origin", origin)
		allowHeaders := r.Header.Get("Access-Control-Request-Headers")
		if allowHeaders == "" {
			allowHeaders = "*"
		}
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, nil)
	if err != nil {
		proxyError(w, err)
		return
	}
	if auth := r.Header.Get(AuthHeader); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		proxyError(w, err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	h := w.Header()
	for k, values := range resp.Header {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Vary", "Origin")
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug("Proxy copy interrupted", "target", target, "err", err)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, domain := range s.config.AllowedOrigins {
		if OriginMatches(origin, domain) {
			return true
		}
	}
	return false
}

// OriginMatches reports whether origin's host is domain or one of its
// subdomains. A leading "*." on domain is ignored. Origins that do not
// parse as URLs are matched by suffix.
func OriginMatches(origin, domain string) bool {
	domain = strings.TrimPrefix(domain, "*.")
	if domain == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return strings.HasSuffix(origin, domain)
	}
	host := u.Hostname()
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	io.WriteString(w, "Forbidden") //nolint:errcheck
}

func proxyError(w http.ResponseWriter, err error) {
	log.Warn("Proxy fetch error", "err", err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "Proxy fetch error: "+err.Error()) //nolint:errcheck
}

// requestLogger logs each request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("Proxy request",
			"method", r.Method,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}
