package response

import (
	"net/http"

	"elevate/pkg/errors"
	"elevate/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the wire shape for every failed request.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// OK sends a 200 response with the given payload.
// The payload carries its own "error":false field.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Accepted sends a 202 response with the given payload.
func Accepted(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusAccepted, payload)
}

// Fail sends an error response with an explicit HTTP status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Error: true, Message: message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = errors.NotFound.Message()
	}
	Fail(c, http.StatusNotFound, message)
}

// Error sends an error response derived from the error's code.
// Unexpected errors are logged server-side and surfaced as a generic 500.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
		zap.Any("details", customErr.Details),
		zap.String("stack", customErr.Stack),
	)

	status := customErr.Code.HTTPStatus()
	message := customErr.Error()
	if status == http.StatusInternalServerError {
		// Never leak internals to callers.
		message = errors.InternalServerError.Message()
	}
	Fail(c, status, message)
}

// AbortWithError aborts the request and sends an error response.
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
