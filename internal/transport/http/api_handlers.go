package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/droprelay/internal/store"
)

const maxHistoryLimit = 500

// APIHandlers provides HTTP handlers for the read-only REST endpoints.
type APIHandlers struct {
	hub     Hub
	history store.HistoryStore
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. history may be nil.
func NewAPIHandlers(hub Hub, history store.HistoryStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:     hub,
		history: history,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomSessionResponse represents a closed room in the history listing.
type RoomSessionResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	OpenedAt      time.Time `json:"openedAt"`
	ClosedAt      time.Time `json:"closedAt"`
	DurationMS    int64     `json:"durationMs"`
	PeakMembers   int       `json:"peakMembers"`
	FramesRelayed int64     `json:"framesRelayed"`
}

// Stats reports live connection and room counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read hub stats")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// History lists the most recently closed rooms.
// GET /api/history?limit=N
func (h *APIHandlers) History(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	sessions, err := h.history.ListRoomSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list room sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]RoomSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, RoomSessionResponse{
			ID:            s.ID,
			Code:          s.Code,
			OpenedAt:      s.OpenedAt,
			ClosedAt:      s.ClosedAt,
			DurationMS:    s.Duration().Milliseconds(),
			PeakMembers:   s.PeakMembers,
			FramesRelayed: s.FramesRelayed,
		})
	}
	c.JSON(http.StatusOK, resp)
}
