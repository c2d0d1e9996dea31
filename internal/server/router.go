package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pegboard/mastermind/internal/chat"
	"github.com/pegboard/mastermind/internal/middleware"
	"github.com/pegboard/mastermind/internal/registry"
	"github.com/pegboard/mastermind/internal/storage"
)

// RouterConfig holds the dependencies for the HTTP router
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *registry.Registry
	Chat     *chat.Hub
	Storage  storage.Storage
}

// NewRouter creates the HTTP router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Handle("/ws", NewWSHandler(cfg.Registry, cfg.Chat, cfg.Logger)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/history", NewHistoryHandler(cfg.Storage, cfg.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
