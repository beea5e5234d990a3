package utils

import "github.com/gin-gonic/gin"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:     message,
		ErrorCode: errorCode,
	})
}
