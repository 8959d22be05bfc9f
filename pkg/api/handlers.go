package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

const defaultHelperLimit = 5

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

// handleSearch serves GET /api/search?q=...&type=&category=&tags=a,b&limit=&offset=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := parseSearchOptions(q)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	resp := s.service.SearchWithMeta(r.Context(), q.Get("q"), opts)
	sendJSON(w, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit", defaultHelperLimit)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	suggestions := s.service.GetSuggestions(r.Context(), q.Get("q"), limit)
	sendJSON(w, APIResponse{Success: true, Data: suggestions})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit, err := intParam(r.URL.Query(), "limit", defaultHelperLimit)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	related := s.service.GetRelatedContent(r.Context(), vars["id"], limit)
	sendJSON(w, APIResponse{Success: true, Data: related})
}

// handleReindex serves POST /api/search/reindex?type=blog; without a type
// the whole index is rebuilt
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var t content.Type
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := content.ParseType(raw)
		if err != nil {
			sendError(w, http.StatusBadRequest, search.SearchError{
				Code:    search.ErrInvalidOption.Code,
				Message: search.ErrInvalidOption.Message,
				Details: err.Error(),
			})
			return
		}
		t = parsed
	}

	if !s.service.UpdateIndex(r.Context(), t) {
		sendError(w, http.StatusServiceUnavailable, search.ErrSourceUnavailable)
		return
	}

	entries, _ := s.service.LoadIndex(r.Context())
	sendJSON(w, APIResponse{Success: true, Data: map[string]interface{}{
		"type":    string(t),
		"entries": len(entries),
	}})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, APIResponse{Success: true, Data: s.service.CacheStats()})
}

// handleCacheClear serves DELETE /api/search/cache?pattern=...
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed := s.service.CacheClear(r.URL.Query().Get("pattern"))
	sendJSON(w, APIResponse{Success: true, Data: map[string]int{"removed": removed}})
}

func (s *Server) handleCachePersist(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CachePersist(); err != nil {
		s.logger.WithError(err).Error("cache persist failed")
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	sendJSON(w, APIResponse{Success: true, Data: s.service.CacheStats().Size})
}

func parseSearchOptions(q url.Values) (search.SearchOptions, error) {
	var opts search.SearchOptions
	var err error

	opts.Type = content.Type(q.Get("type"))
	opts.Category = q.Get("category")
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}

	if opts.Limit, err = intParam(q, "limit", 0); err != nil {
		return opts, err
	}
	if opts.Offset, err = intParam(q, "offset", 0); err != nil {
		return opts, err
	}
	if opts.Threshold, err = floatParam(q, "threshold"); err != nil {
		return opts, err
	}
	if opts.MinScore, err = floatParam(q, "minScore"); err != nil {
		return opts, err
	}
	if opts.IncludeContent, err = boolParam(q, "includeContent"); err != nil {
		return opts, err
	}
	if opts.ListAll, err = boolParam(q, "listAll"); err != nil {
		return opts, err
	}

	return opts, opts.Validate()
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return v, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return v, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(name, raw)
	}
	return v, nil
}

func invalidParam(name, raw string) error {
	return search.SearchError{
		Code:    search.ErrInvalidOption.Code,
		Message: search.ErrInvalidOption.Message,
		Details: name + " has invalid value '" + raw + "'",
	}
}
