package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/voxkit/cleanscribe/internal/cache"
	"github.com/voxkit/cleanscribe/internal/config"
	"github.com/voxkit/cleanscribe/internal/history"
	"github.com/voxkit/cleanscribe/internal/logger"
	"github.com/voxkit/cleanscribe/internal/pipeline"
	"github.com/voxkit/cleanscribe/internal/replace"
	"github.com/voxkit/cleanscribe/internal/web"
	"github.com/voxkit/cleanscribe/internal/websocket"
	"go.uber.org/zap"
)

// modelID is the model name reported on the OpenAI-compatible surface.
const modelID = "cleanscribe"

// Server exposes the transcript pipeline behind an OpenAI-compatible
// HTTP facade plus the dashboard/live-feed endpoints.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	pipeline *pipeline.Pipeline
	cache    *cache.ResultCache
	history  *history.Store
	store    *replace.Store
	router   *mux.Router
	server   *http.Server
	wsHub    *websocket.Hub
	limiter  *ipLimiter

	startTime     time.Time
	totalRequests atomic.Int64
}

// Deps carries the optional collaborators wired in by main. Cache,
// History and Store may be nil when the corresponding feature is off.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Cache    *cache.ResultCache
	History  *history.Store
	Store    *replace.Store
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, log *logger.Logger) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("server requires a pipeline")
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastStageTraces: cfg.WebSocket.BroadcastStageTraces,
		BroadcastRequestLogs: cfg.WebSocket.BroadcastRequestLogs,
		BroadcastConnections: cfg.WebSocket.BroadcastConnections,
		WebSocketUsername:    cfg.WebSocket.Username,
		WebSocketPassword:    cfg.WebSocket.Password,
	}, log.WithComponent("websocket").Logger)

	router := mux.NewRouter()

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		pipeline:  deps.Pipeline,
		cache:     deps.Cache,
		history:   deps.History,
		store:     deps.Store,
		router:    router,
		wsHub:     wsHub,
		startTime: time.Now(),
	}

	if cfg.Server.RateLimit.Enabled {
		server.limiter = newIPLimiter(cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard endpoint
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	}

	// OpenAI-compatible endpoints
	apiRouter := s.router.PathPrefix("/v1").Subrouter()
	apiRouter.Use(s.loggingMiddleware)
	apiRouter.Use(s.rateLimitMiddleware)
	apiRouter.HandleFunc("/chat/completions", s.handleChatCompletions).Methods("POST")
	apiRouter.HandleFunc("/responses", s.handleResponses).Methods("POST")
	apiRouter.HandleFunc("/models", s.handleModels).Methods("GET")
	apiRouter.HandleFunc("/history", s.handleHistory).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting CleanScribe server",
		zap.Int("port", s.config.Server.Port),
		zap.String("default_language", s.config.Pipeline.DefaultLanguage),
		zap.Strings("languages", s.config.Pipeline.Languages),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("history_enabled", s.history != nil),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping CleanScribe server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// Router returns the configured mux, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
