package handlers

import (
	"errors"
	"net/http"

	"creddit/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError maps err to a status and JSON body. signal carries the
// operation's failure value (e.g. "ok": false, "post": nil) so clients
// always get the shape they expect.
func writeError(c *gin.Context, log *logrus.Logger, err error, signal gin.H) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrStorageConflict):
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
	case errors.Is(err, apperror.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"error": "internal server error"}
	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if fields := appErr.FieldErrors(); fields != nil {
			body["errors"] = fields
		}
	}
	for k, v := range signal {
		body[k] = v
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
