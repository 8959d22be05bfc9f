package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

func testRecords() []content.Record {
	return []content.Record{
		{
			ID: "blog1", Type: content.TypeBlog, Title: "JavaScript Tips",
			Description: "Useful JavaScript tips and tricks", Tags: []string{"javascript", "tips"},
			Category: "tutorial", Status: content.StatusPublished, Priority: 8,
		},
		{
			ID: "hooks", Type: content.TypeBlog, Title: "React Hooks",
			Description: "State in function components", Tags: []string{"react", "hooks"},
			Category: "tutorial", Status: content.StatusPublished,
		},
		{
			ID: "site", Type: content.TypePortfolio, Title: "Portfolio Site",
			Description: "Built with React", Tags: []string{"react"},
			Category: "web", Status: content.StatusPublished,
		},
	}
}

func newTestServer(t *testing.T, src content.Source) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc := search.NewService(search.Options{
		Source:     src,
		CachePath:  t.TempDir() + "/cache.json",
		Logger:     logging.NewNopLogger(),
		Registerer: reg,
	})
	srv := NewServer(svc, Config{Gatherer: reg}, logging.NewNopLogger())
	t.Cleanup(srv.Close)
	return srv, reg
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func do(t *testing.T, srv *Server, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	rec, env := do(t, srv, "GET", "/api/search?q=javascript")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp search.SearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "blog1", resp.Results[0].ID)
	assert.Equal(t, "/workshop/blog/blog1", resp.Results[0].URL)
	assert.Equal(t, 1, resp.Total)
}

func TestSearchEndpointFilters(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	_, env := do(t, srv, "GET", "/api/search?q=react&type=portfolio&tags=React,web")
	var resp search.SearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "site", resp.Results[0].ID)

	_, env = do(t, srv, "GET", "/api/search?q=&listAll=true&limit=2")
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 3, resp.Total)
	assert.True(t, resp.HasMore)
}

func TestSearchEndpointRejectsBadOptions(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	for _, target := range []string{
		"/api/search?q=x&limit=ten",
		"/api/search?q=x&offset=-1",
		"/api/search?q=x&threshold=2",
		"/api/search?q=x&type=video",
		"/api/search?q=x&includeContent=maybe",
	} {
		rec, env := do(t, srv, "GET", target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.False(t, env.Success)
		assert.Equal(t, search.ErrInvalidOption.Code, env.Code, target)
	}
}

func TestSuggestionsAndRelatedEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	_, env := do(t, srv, "GET", "/api/search/suggestions?q=rea")
	var suggestions []string
	require.NoError(t, json.Unmarshal(env.Data, &suggestions))
	assert.Contains(t, suggestions, "react")

	_, env = do(t, srv, "GET", "/api/search/related/hooks?limit=5")
	var related []search.Related
	require.NoError(t, json.Unmarshal(env.Data, &related))
	require.Len(t, related, 2)
	assert.Equal(t, "blog1", related[0].ID)
	assert.Equal(t, "site", related[1].ID)
}

func TestReindexEndpoint(t *testing.T) {
	src := &content.StaticSource{Records: testRecords()}
	srv, _ := newTestServer(t, src)

	rec, _ := do(t, srv, "POST", "/api/search/reindex?type=blog")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, srv, "POST", "/api/search/reindex?type=video")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, search.ErrInvalidOption.Code, env.Code)

	src.Err = assert.AnError
	rec, env = do(t, srv, "POST", "/api/search/reindex")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, search.ErrSourceUnavailable.Code, env.Code)
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	do(t, srv, "GET", "/api/search?q=react")
	do(t, srv, "GET", "/api/search?q=tips")

	_, env := do(t, srv, "GET", "/api/search/cache/stats")
	var stats search.CacheStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.Size)

	rec, _ := do(t, srv, "POST", "/api/search/cache/persist")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = do(t, srv, "DELETE", "/api/search/cache?pattern=react")
	var removed map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, 1, removed["removed"])

	_, env = do(t, srv, "DELETE", "/api/search/cache")
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, 1, removed["removed"])
}

func TestRequestIDAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})

	rec, env := do(t, srv, "GET", "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	given := uuid.NewString()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, given)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})
	do(t, srv, "GET", "/api/search?q=react")

	rec, _ := do(t, srv, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitesearch_queries_total")
}

func TestEventsWebSocket(t *testing.T) {
	srv, _ := newTestServer(t, &content.StaticSource{Records: testRecords()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/search/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var greeting EventMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "stats", greeting.Type)

	resp, err := http.Post(ts.URL+"/api/search/reindex?type=blog", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event struct {
		Type string            `json:"type"`
		Data search.IndexEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "index_updated", event.Type)
	assert.Equal(t, content.TypeBlog, event.Data.Type)
	assert.Equal(t, 2, event.Data.Count)
}
