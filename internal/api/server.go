// Package api exposes the organization directory over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anajobs/anajobs/internal/store"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Directory is the slice of the organization store the HTTP layer needs.
type Directory interface {
	Search(ctx context.Context, term string, limit int64) ([]store.Organization, error)
	ByDomain(ctx context.Context, suffix string) ([]store.Organization, error)
	FindByName(ctx context.Context, name string) (*store.Organization, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// NewHandler returns an http.Handler serving read-only queries against the
// organization store.
func NewHandler(s Directory) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/search", handleSearch(s))
	r.Get("/stats", handleStats(s))
	r.Get("/organizations/{name}", handleOrganization(s))
	r.Get("/domains/{suffix}", handleDomain(s))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSearch(s Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")
		if term == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}

		limit := int64(defaultSearchLimit)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = min(n, maxSearchLimit)
		}

		orgs, err := s.Search(r.Context(), term, limit)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "search failed: %v", err)
			return
		}
		writeJSON(w, map[string]any{"organizations": orgs, "count": len(orgs)})
	}
}

func handleStats(s Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Stats(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "stats failed: %v", err)
			return
		}
		writeJSON(w, stats)
	}
}

func handleOrganization(s Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		org, err := s.FindByName(r.Context(), name)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no organization named %q", name)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "lookup failed: %v", err)
			return
		}
		writeJSON(w, org)
	}
}

func handleDomain(s Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suffix := chi.URLParam(r, "suffix")
		orgs, err := s.ByDomain(r.Context(), suffix)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "domain query failed: %v", err)
			return
		}
		writeJSON(w, map[string]any{"organizations": orgs, "count": len(orgs)})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
