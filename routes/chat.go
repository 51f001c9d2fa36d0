package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"noddy-ai-backend/internal/chat"
	"noddy-ai-backend/internal/config"
	"noddy-ai-backend/internal/logger"
	"noddy-ai-backend/internal/provider"
	"noddy-ai-backend/models"
	"noddy-ai-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupChatRoutes registers the chat boundary.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, orchestrator *chat.Orchestrator) {
	router.POST("/api/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		model := req.Model
		if model == "" {
			model = cfg.PrimaryModel
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(cfg.ChatTimeoutSec)*time.Second)
		defer cancel()

		result, err := orchestrator.Respond(ctx, chat.Request{
			Identity: c.GetHeader(cfg.QuotaKeyHeader),
			Message:  req.Message,
			History:  req.History,
			Model:    model,
		})
		if err != nil {
			respondChatError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Response: result.Response,
			Thoughts: result.Thoughts,
		})
	})
}

// respondChatError maps the error taxonomy onto HTTP status classes: upstream
// failures carry provider detail, configuration faults hide theirs behind a
// generic message.
func respondChatError(c *gin.Context, err error) {
	var upstreamErr *provider.UpstreamError
	if errors.As(err, &upstreamErr) {
		utils.RespondWithUpstreamError(c, "LLM provider error", gin.H{
			"provider": upstreamErr.Provider,
			"status":   upstreamErr.Status,
			"body":     upstreamErr.Body,
		})
		return
	}

	var confErr *provider.ConfigurationError
	if errors.As(err, &confErr) {
		utils.RespondWithInternalError(c, "Service unavailable", nil)
		return
	}

	logger.Error("chat request failed", "error", err)
	utils.RespondWithInternalError(c, "Failed to generate response", gin.H{"error": err.Error()})
}
