// Package httpapi serves the REST surface for saved games and AI generation.
// Live gameplay goes over the WebSocket; these endpoints exist for the lobby
// UI to browse, fetch, and mint content packs.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/buzzboard/backend/internal/v1/generator"
	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/store"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GameBuilder is the slice of generator.Builder the API needs.
type GameBuilder interface {
	BuildGame(ctx context.Context, topics []string, difficulty string) (*types.GameConfig, error)
}

// Handler serves the games REST API.
type Handler struct {
	store   store.GameStore
	builder GameBuilder
}

// NewHandler creates the REST handler. builder may be nil when no generator
// endpoint is configured; generation then returns 503.
func NewHandler(gameStore store.GameStore, builder GameBuilder) *Handler {
	return &Handler{store: gameStore, builder: builder}
}

// Register mounts the games routes on a router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/games/list", h.ListGames)
	rg.GET("/games/:id", h.GetGame)
	rg.POST("/games/generate", h.GenerateGame)
}

// ListGames returns summaries of every stored game, newest first.
// GET /api/games/list
func (h *Handler) ListGames(c *gin.Context) {
	summaries, err := h.store.List(c.Request.Context())
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to list games", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list games"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetGame returns one stored game config by id.
// GET /api/games/:id
func (h *Handler) GetGame(c *gin.Context) {
	id := c.Param("id")

	cfg, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to load game", zap.String("gameId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load game"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GenerateRequest is the body for POST /api/games/generate.
type GenerateRequest struct {
	Topics     []string `json:"topics" binding:"required,min=1"`
	Difficulty string   `json:"difficulty"`
	Save       bool     `json:"save"`
}

// GenerateGame asks the AI generator for a fresh board. With save=true the
// result is persisted before being returned.
// POST /api/games/generate
func (h *Handler) GenerateGame(c *gin.Context) {
	if h.builder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "game generation is not configured"})
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topics must be a non-empty array of strings"})
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.builder.BuildGame(ctx, req.Topics, req.Difficulty)
	if errors.Is(err, generator.ErrInvalidOutput) {
		logging.Warn(ctx, "Generator produced an unusable board", zap.Strings("topics", req.Topics), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "generator produced an unusable board, try again"})
		return
	}
	if err != nil {
		logging.Error(ctx, "Game generation failed", zap.Strings("topics", req.Topics), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "game generation failed"})
		return
	}

	if req.Save {
		if _, err := h.store.Save(ctx, cfg); err != nil {
			logging.Error(ctx, "Failed to persist generated game", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generated a game but could not save it"})
			return
		}
	}

	c.JSON(http.StatusOK, cfg)
}
