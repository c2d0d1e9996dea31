package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/storage"
)

const defaultHistoryLimit = 20

// HistoryHandler serves recently completed games
type HistoryHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewHistoryHandler creates the game history handler
func NewHistoryHandler(store storage.Storage, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		storage: store,
		logger:  logger,
	}
}

// GameSummaryResponse is the wire form of one completed game
type GameSummaryResponse struct {
	ID          string            `json:"id"`
	Outcome     model.GameOutcome `json:"outcome"`
	Turns       int               `json:"turns"`
	CompletedAt time.Time         `json:"completed_at"`
}

// HistoryResponse is the response body for GET /api/v1/history
type HistoryResponse struct {
	Games []GameSummaryResponse `json:"games"`
}

// ServeHTTP handles GET /api/v1/history
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	summaries, err := h.storage.ListRecentSummaries(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list game summaries", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Participant tokens stay private; the history exposes outcomes only
	resp := HistoryResponse{Games: make([]GameSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Games = append(resp.Games, GameSummaryResponse{
			ID:          string(s.ID),
			Outcome:     s.Outcome,
			Turns:       s.Turns,
			CompletedAt: s.CompletedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
