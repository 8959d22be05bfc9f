// Package api exposes the search service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

// Config configures the HTTP server
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Serves /metrics when set
	Gatherer prometheus.Gatherer
}

// Server serves search queries, suggestions and index maintenance endpoints
type Server struct {
	service *search.Service
	config  Config
	logger  *logging.Logger
	router  *mux.Router

	// WebSocket management
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]chan interface{}
	wsMutex    sync.RWMutex

	unsubscribe func()
}

// APIResponse is the envelope for every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// NewServer creates the server and its routes
func NewServer(service *search.Service, config Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		service: service,
		config:  config,
		logger:  logger.WithComponent("api"),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		wsClients: make(map[*websocket.Conn]chan interface{}),
	}
	s.router = s.routes()
	s.unsubscribe = service.OnIndexUpdate(s.broadcastIndexEvent)
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.requestID, s.accessLog)

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.config.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	router.HandleFunc("/api/search", s.handleSearch).Methods("GET")

	api := router.PathPrefix("/api/search").Subrouter()
	api.HandleFunc("/suggestions", s.handleSuggestions).Methods("GET")
	api.HandleFunc("/related/{id}", s.handleRelated).Methods("GET")
	api.HandleFunc("/reindex", s.handleReindex).Methods("POST")
	api.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	api.HandleFunc("/cache", s.handleCacheClear).Methods("DELETE")
	api.HandleFunc("/cache/persist", s.handleCachePersist).Methods("POST")
	api.HandleFunc("/events", s.handleWebSocket)

	return router
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.config.Address).Info("search API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("search API stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down search API: %w", err)
	}
	return nil
}

// Close stops event delivery and disconnects WebSocket clients
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	for conn := range s.wsClients {
		conn.Close()
	}
}

func sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, err error) {
	resp := APIResponse{Success: false, Error: err.Error()}
	var se search.SearchError
	if errors.As(err, &se) {
		resp.Code = se.Code
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
