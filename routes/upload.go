package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thedemonsid/quiz-app/models"
	"github.com/thedemonsid/quiz-app/utils"
)

// Ingester runs one upload request through the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, r *http.Request) models.IngestionResult
}

// SetupUploadRoutes registers the document upload endpoint behind the given middleware.
func SetupUploadRoutes(router gin.IRouter, ingester Ingester, handlers ...gin.HandlerFunc) {
	api := router.Group("/api", handlers...)
	api.POST("/upload", HandleUpload(ingester))
}

// HandleUpload answers {"chunks": [...]} or {"error", "error_code"}.
func HandleUpload(ingester Ingester) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := ingester.Ingest(c.Request.Context(), c.Request)
		if !result.OK() {
			kind := result.Failure.Kind
			utils.RespondWithError(c, kind.HTTPStatus(), kind.Code(), result.Failure.Message)
			return
		}

		c.JSON(http.StatusOK, result.Response())
	}
}
