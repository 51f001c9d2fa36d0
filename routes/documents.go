package routes

import (
	"net/http"

	"noddy-ai-backend/internal/rag"
	"noddy-ai-backend/models"
	"noddy-ai-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupDocumentRoutes registers the ingestion boundary. The endpoint accepts
// a document name plus already-extracted plain text.
func SetupDocumentRoutes(router *gin.Engine, ingestor *rag.Ingestor) {
	router.POST("/api/documents", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		chunks, err := ingestor.Ingest(c.Request.Context(), req.Name, req.Text)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to ingest document", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.IngestResponse{Name: req.Name, Chunks: chunks})
	})
}
