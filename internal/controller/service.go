// Package controller implements the Proxy Controller Service: an HTTP
// front-end that provisions budget-bounded users and keys on an upstream
// model-proxy admin API and ingests trajectory records on its behalf.
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/trajlogger"
	"github.com/rs/zerolog"
)

// Service is the Proxy Controller Service. It owns an upstream client
// and a trajectory logger, and exposes both over HTTP.
type Service struct {
	upstream *upstream
	traj     *trajlogger.Logger
	log      zerolog.Logger
}

// Config mirrors the environment-resolved settings in internal/config.Controller.
type Config struct {
	UpstreamURL    string
	UpstreamKey    string
	GlobalBudget   float64
	InstanceBudget float64
	TrajPath       string
}

// New builds a Service from Config.
func New(cfg Config) *Service {
	return &Service{
		upstream: newUpstream(cfg.UpstreamURL, cfg.UpstreamKey, cfg.GlobalBudget, cfg.InstanceBudget),
		traj:     trajlogger.New(cfg.TrajPath),
		log:      logging.WithComponent("controller"),
	}
}

// Router builds the chi router serving /harness/*.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/harness", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/create_user", s.handleCreateUser)
		r.Get("/delete_user", s.handleDeleteUser)
		r.Get("/create_key", s.handleCreateKey)
		r.Get("/delete_key", s.handleDeleteKey)
		r.Get("/query_balance", s.handleQueryBalance)
		r.Post("/log_call", s.handleLogCall)
	})

	return r
}

// ListenAndServe serves the router at addr.
func (s *Service) ListenAndServe(addr string) error {
	s.log.Info().Str("addr", addr).Msg("controller listening")
	return http.ListenAndServe(addr, s.Router())
}
