// Package server is the HTTP layer of stepform: server-rendered auth and
// form pages, JSON proxy endpoints for autosave and submission, media
// proxying, and the websocket live channel.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/stepform/stepform/internal/view"
	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/config"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/pubsub"
)

// Server wires the application together.
type Server struct {
	cfg      *config.Config
	backend  *backend.Client
	renderer *view.Renderer
	bus      *pubsub.Bus
	logger   logging.Logger
	http     *http.Server
}

// New builds a Server from its collaborators.
func New(cfg *config.Config, be *backend.Client, logger logging.Logger) (*Server, error) {
	renderer, err := view.New()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		backend:  be,
		renderer: renderer,
		bus:      pubsub.NewBus(),
		logger:   logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Public pages.
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/form", http.StatusFound)
	})

	// Form pages.
	mux.Handle("GET /form", s.requirePage(s.handleFormIndex))
	mux.Handle("GET /form/review", s.requirePage(s.handleReview))
	mux.Handle("POST /form/review/submit", s.requirePage(s.handleReviewSubmit))
	mux.Handle("GET /form/{step}", s.requirePage(s.handleStep))

	// JSON and media proxy endpoints.
	mux.Handle("POST /api/save", s.requireAPI(s.handleSave))
	mux.Handle("POST /api/submit", s.requireAPI(s.handleSubmit))
	mux.Handle("POST /api/media/upload", s.requireAPI(s.handleMediaUpload))
	mux.Handle("DELETE /api/media", s.requireAPI(s.handleMediaDelete))
	mux.Handle("GET /api/media/download", s.requireAPI(s.handleMediaDownload))

	// Live channel.
	mux.Handle("GET /live", s.requireAPI(s.handleLive))

	var handler http.Handler = mux
	handler = Recovery(s.logger)(handler)
	handler = RequestLogger(s.logger)(handler)
	handler = RequestID()(handler)
	return handler
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening",
		logging.String("addr", s.cfg.Addr),
		logging.String("backend", s.cfg.BackendURL))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the live bus.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if busErr := s.bus.Close(); busErr != nil && busErr != pubsub.ErrClosed && err == nil {
		err = busErr
	}
	return err
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
