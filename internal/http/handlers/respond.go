package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
)

// respondError maps service errors onto HTTP statuses with a plain error
// body. Unknown errors become 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, apperrors.ErrSessionNotComplete):
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation not complete"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func wantsEventStream(c *gin.Context) bool {
	if c.Query("stream") == "1" || c.Query("stream") == "true" {
		return true
	}
	return c.GetHeader("Accept") == "text/event-stream"
}
