// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavelink/gateway/internal/mediaproxy"
	"github.com/wavelink/gateway/internal/registry"
	"github.com/wavelink/gateway/internal/resolver"
)

// healthResponse matches spec.md §6.1's GET /health contract exactly.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// registryReplaceRequest is the POST /admin/instances body shape: a fresh
// instance list per service kind, replacing the registry's current
// snapshot wholesale.
type registryReplaceRequest struct {
	Piped     []string `json:"piped"`
	Invidious []string `json:"invidious"`
	Hyperpipe []string `json:"hyperpipe"`
	HLS       []string `json:"hls"`
	Proxy     []string `json:"proxy"`
}

func (req registryReplaceRequest) toRegistryConfig() registry.Config {
	return registry.Config{
		Piped:     req.Piped,
		Invidious: req.Invidious,
		Hyperpipe: req.Hyperpipe,
		HLS:       req.HLS,
		Proxy:     req.Proxy,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, healthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		RespondError(w, http.StatusBadRequest, "q is required", "")
		return
	}
	region := r.URL.Query().Get("region")

	tracks, err := s.catalog.Search(r.Context(), q, region)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "search unavailable", err.Error())
		return
	}
	RespondJSON(w, tracks)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	tracks, err := s.catalog.Trending(r.Context(), region)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "trending unavailable", err.Error())
		return
	}
	RespondJSON(w, tracks)
}

type streamBestResponse struct {
	URL         string `json:"url"`
	ProxiedURL  string `json:"proxiedUrl"`
	ManifestURL string `json:"manifestUrl,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Origin      string `json:"origin"`
	Instance    string `json:"instance,omitempty"`
}

func (s *Server) handleStreamBest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	rs, err := s.resolver.Resolve(r.Context(), id, resolver.Options{
		PreferredSource:   q.Get("source"),
		PreferredInstance: q.Get("instance"),
	})
	if err != nil {
		RespondError(w, http.StatusBadGateway, "stream unavailable", "try a VPN or a different region")
		return
	}

	proxyQuery := url.Values{
		"src":      {rs.AudioURL},
		"source":   {rs.Source},
		"instance": {rs.Instance},
	}
	RespondJSON(w, streamBestResponse{
		URL:         rs.AudioURL,
		ProxiedURL:  "/streams/" + id + "/proxy?" + proxyQuery.Encode(),
		ManifestURL: rs.ManifestURL,
		MimeType:    rs.MimeType,
		Origin:      rs.Source,
		Instance:    rs.Instance,
	})
}

func (s *Server) handleStreamProxy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	src := q.Get("src")
	if src == "" {
		RespondError(w, http.StatusBadRequest, "src is required", "")
		return
	}

	err := s.proxy.Serve(w, r, mediaproxy.Request{
		VideoID:  id,
		Src:      src,
		Source:   q.Get("source"),
		Instance: q.Get("instance"),
	})
	if err == mediaproxy.ErrAtCapacity {
		RespondError(w, http.StatusServiceUnavailable, "gateway at capacity", "")
		return
	}
}

type lyricsResponse struct {
	Lyrics *string `json:"lyrics"`
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	artist := r.URL.Query().Get("artist")
	if title == "" || artist == "" {
		RespondError(w, http.StatusBadRequest, "title and artist are required", "")
		return
	}

	text, ok := s.lyrics.Lookup(artist, title)
	if !ok {
		RespondJSON(w, lyricsResponse{Lyrics: nil})
		return
	}
	RespondJSON(w, lyricsResponse{Lyrics: &text})
}

func (s *Server) handleHistoryPost(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var entry historyEntry
	if err := decodeJSONBody(r, &entry); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid history record", err.Error())
		return
	}

	if p.Guest {
		RespondJSON(w, map[string]string{"message": "history is not persisted for guests"})
		return
	}
	s.history.Append(p.Subject, entry)
	RespondJSON(w, map[string]string{"message": "recorded"})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	list := s.history.List(p.Subject)

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(list) {
			list = list[:limit]
		}
	}
	RespondJSON(w, list)
}

func (s *Server) handleAdminInstances(w http.ResponseWriter, r *http.Request) {
	var cfg registryReplaceRequest
	if err := decodeJSONBody(r, &cfg); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid instance list", err.Error())
		return
	}
	s.registry.Replace(cfg.toRegistryConfig())
	RespondJSON(w, map[string]string{"message": "instances replaced"})
}
