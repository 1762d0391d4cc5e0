// Package web is the local HTTP control plane: a chi router serving the
// browser page, JSON endpoints that drive the orchestrator, and a
// Server-Sent-Events stream of job progress.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Server timing defaults.
const (
	DefaultKeepAlive       = 25 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Server serves the browser page and its API.
type Server struct {
	orch     driving.Orchestrator
	tokens   driving.TokenService
	settings driving.SettingsService
	editor   driving.ConfigEditor
	prefs    driven.PreferencesStore
	hub      *Hub

	keepAlive time.Duration
	quitOnce  sync.Once
	quit      chan struct{}
}

// NewServer creates a server. Events published on hub are streamed to /events.
func NewServer(
	orch driving.Orchestrator,
	tokens driving.TokenService,
	settings driving.SettingsService,
	editor driving.ConfigEditor,
	prefs driven.PreferencesStore,
	hub *Hub,
) *Server {
	return &Server{
		orch:      orch,
		tokens:    tokens,
		settings:  settings,
		editor:    editor,
		prefs:     prefs,
		hub:       hub,
		keepAlive: DefaultKeepAlive,
		quit:      make(chan struct{}),
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if logger.IsVerbose() {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  logger.Printer{},
			NoColor: true,
		}))
	}
	r.Use(middleware.Recoverer, recoverJSON)

	r.Get("/events", s.handleEvents)

	r.Get("/prefs", s.handleGetPrefs)
	r.Post("/prefs", s.handleSavePrefs)

	r.Post("/auth", s.handleAuth)
	r.Get("/token-status", s.handleTokenStatus)

	r.Get("/profiles", s.handleProfiles)
	r.Post("/profile", s.handleSwitchProfile)

	r.Post("/search", s.handleSearch)
	r.Get("/results", s.handleResults)
	r.Get("/invoice-details", s.handleDetails)
	r.Post("/download", s.handleDownload)
	r.Post("/check-existing", s.handleCheckExisting)

	r.Get("/browse", s.handleBrowse)
	r.Post("/mkdir", s.handleMkdir)

	r.Get("/config-editor", s.handleReadConfig)
	r.Post("/config-editor", s.handleWriteConfig)

	r.Post("/quit", s.handleQuit)

	r.Get("/", s.handleIndex)
	r.NotFound(s.handleNotFound)

	return r
}

// Quit returns a channel closed when /quit was requested.
func (s *Server) Quit() <-chan struct{} {
	return s.quit
}

// Serve accepts connections on ln until ctx is cancelled or /quit is called,
// then shuts down gracefully. Open event streams are released first.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down")
	case <-s.quit:
		logger.Info("Quit requested, shutting down")
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) requestQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}
