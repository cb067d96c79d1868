package middleware

import (
	stderrors "errors"
	"net/http"

	"teamstream/internal/core/domain"
	"teamstream/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusForError(err error) int {
	switch {
	case stderrors.Is(err, domain.ErrTeamNotFound),
		stderrors.Is(err, domain.ErrStreamNotFound),
		stderrors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, domain.ErrNotMember):
		return http.StatusForbidden
	case stderrors.Is(err, domain.ErrInvalidStreamType),
		stderrors.Is(err, domain.ErrStreamExists):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware converts errors attached to the gin context into
// structured HTTP responses.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var msgErr *errors.MessagingError
		if stderrors.As(err, &msgErr) {
			logger.Errorw("messaging error",
				"code", msgErr.Code,
				"message", msgErr.Message,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   string(msgErr.Code),
				"message": msgErr.Message,
			})
			return
		}

		status := statusForError(err)
		if status == http.StatusInternalServerError {
			logger.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(status, gin.H{
				"error":   string(errors.ErrCodeInternal),
				"message": "Internal server error",
			})
			return
		}

		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
