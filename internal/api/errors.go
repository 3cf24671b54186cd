package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/zwiggato/internal/failure"
)

// errorBody is the JSON error payload.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func notFound(message string) error {
	return failure.NotFound(message)
}

// statusFor maps a failure code to an HTTP status.
func statusFor(code failure.Code) int {
	switch code {
	case failure.CodeValidation:
		return http.StatusBadRequest
	case failure.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the payload for err. Validation and
// not-found messages are returned as is; anything else is logged with its
// cause and answered with a generic message.
func writeError(c *gin.Context, err error, logger *slog.Logger) {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		fe = &failure.Error{Code: failure.CodeStorage, Message: "internal server error", Err: err}
	}

	status := statusFor(fe.Code)
	body := errorBody{Error: fe.Message}
	switch fe.Code {
	case failure.CodeValidation:
		body.Field = fe.Field
	case failure.CodeNotFound:
	default:
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
			"request_id", RequestIDFrom(c),
		)
	}

	c.Abort()
	c.PureJSON(status, body)
}
