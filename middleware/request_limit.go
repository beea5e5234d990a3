package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thedemonsid/quiz-app/models"
	"github.com/thedemonsid/quiz-app/utils"
)

// RequestSizeLimit rejects requests whose declared Content-Length exceeds maxSize.
// Bodies without a declared length are bounded later by the upload parser.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				models.FailureTooLarge.Code(),
				models.FailureTooLarge.Message())
			c.Abort()
			return
		}
		c.Next()
	}
}
