// SPDX-License-Identifier: MIT

// Package api wires the gateway's HTTP surface: route dispatch, auth
// gating, and the {message, error?} error envelope, grounded on the
// teacher's chi.Router route-group pattern (internal/api/server_routes.go).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wavelink/gateway/internal/auth"
	"github.com/wavelink/gateway/internal/cache"
	"github.com/wavelink/gateway/internal/catalog"
	xglog "github.com/wavelink/gateway/internal/log"
	"github.com/wavelink/gateway/internal/mediaproxy"
	"github.com/wavelink/gateway/internal/registry"
	"github.com/wavelink/gateway/internal/resolver"
)

// Server holds every dependency the HTTP surface dispatches into.
type Server struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	proxy    *mediaproxy.Proxy
	catalog  *catalog.Service
	issuer   *auth.Issuer
	history  *historyStore
	lyrics   *lyricsProvider
}

// New creates a Server ready to build its router via Routes().
func New(reg *registry.Registry, res *resolver.Resolver, prx *mediaproxy.Proxy, cat *catalog.Service, issuer *auth.Issuer, c cache.Cache) *Server {
	return &Server{
		registry: reg,
		resolver: res,
		proxy:    prx,
		catalog:  cat,
		issuer:   issuer,
		history:  newHistoryStore(),
		lyrics:   newLyricsProvider(c),
	}
}

// Routes builds the full chi.Router per spec.md §6.1, plus SPEC_FULL.md §5's
// GET /metrics and POST /admin/instances additions.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(xglog.Middleware())
	r.Use(middleware.Recoverer)

	// Public, non-streaming: bounded by the request-wide timeout.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Timeout(30 * time.Second))
		pr.Get("/health", s.handleHealth)
		pr.Handle("/metrics", promhttp.Handler())
	})

	// Guest-ok.
	r.Group(func(gr chi.Router) {
		gr.Use(s.guestOKMiddleware)

		// Non-streaming guest-ok routes: bounded by the request-wide timeout.
		gr.Group(func(tr chi.Router) {
			tr.Use(middleware.Timeout(30 * time.Second))
			tr.Get("/search", s.handleSearch)
			tr.Get("/trending", s.handleTrending)
			tr.Get("/streams/{id}/best", s.handleStreamBest)
			tr.Get("/lyrics", s.handleLyrics)
			tr.Post("/history", s.handleHistoryPost)
			tr.Get("/history", s.handleHistoryGet)
		})

		// The proxy route streams media for as long as playback lasts (§5)
		// and must not inherit a fixed request deadline: chi's Timeout sets
		// a context deadline on r.Context(), and the media proxy threads
		// that context straight into the upstream request, so applying it
		// here would cut every stream off at 30s.
		gr.Get("/streams/{id}/proxy", s.handleStreamProxy)
	})

	// Authenticated.
	r.Group(func(ar chi.Router) {
		ar.Use(s.authenticatedMiddleware)
		ar.Use(middleware.Timeout(30 * time.Second))
		ar.Post("/admin/instances", s.handleAdminInstances)
	})

	return r
}
