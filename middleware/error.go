package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

// ErrorHandler recovers from panics and renders the last error a handler
// attached with c.Error, when the handler did not write a response itself.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(RequestIDKey),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An unexpected error occurred",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := Render(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
		}
		c.JSON(status, body)
	}
}

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	var remoteErr *remote.RemoteError
	var transportErr *remote.TransportError
	switch {
	case errors.Is(err, remote.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Render builds the status and JSON body for err. Backend failures keep the
// upstream status and body so the caller can show them.
func Render(err error) (int, gin.H) {
	status := StatusFor(err)
	body := gin.H{"error": err.Error()}

	var invalid *remote.InvalidArgumentError
	var remoteErr *remote.RemoteError
	switch {
	case errors.As(err, &invalid):
		body["field"] = invalid.Field
	case errors.As(err, &remoteErr):
		body["upstreamStatus"] = remoteErr.StatusCode
		body["upstreamBody"] = remoteErr.Body
	}
	return status, body
}
