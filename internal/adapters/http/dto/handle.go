package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote-service/internal/domain"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
)

const (
	// TraceIDKey is the gin context key the telemetry middleware stores the trace ID under.
	TraceIDKey = "trace_id"

	// RequestIDKey is the gin context key the request ID middleware uses.
	RequestIDKey = "request_id"

	// RequestIDHeader is consulted when no trace or request ID is recorded.
	RequestIDHeader = "X-Request-ID"
)

const (
	unavailableMessage = "the service is temporarily unavailable, please retry"
	internalMessage    = "an internal error occurred"
)

// FromDomainError maps a domain error to an HTTP status and error envelope.
// Unavailable and unknown errors get generic messages so internals do not leak.
func FromDomainError(err error) (int, *ErrorResponse) {
	var resp *ErrorResponse

	switch {
	case domain.IsNotFound(err):
		resp = NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsValidation(err):
		resp = NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

	case domain.IsUnavailable(err):
		resp = NewErrorResponse(ErrorCodeUnavailable, unavailableMessage)

	default:
		resp = NewErrorResponse(ErrorCodeInternal, internalMessage)
	}

	return HTTPStatusFromCode(resp.Error.Code), resp
}

// HandleError writes the error envelope for err, tagged with the request's
// trace ID. Server-side failures are logged with the full error.
func HandleError(c *gin.Context, err error) {
	status, resp := FromDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Any("error", err),
			slog.Int("status", status),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// GetTraceID returns the active trace ID, falling back to the request ID.
// Returns "" when neither is available.
func GetTraceID(c *gin.Context) string {
	if id := c.GetString(TraceIDKey); id != "" {
		return id
	}

	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}

	if c.Request != nil {
		return c.Request.Header.Get(RequestIDHeader)
	}

	return ""
}

// HandleBindError writes a 400 for a failed BindQueryAndValidate or
// BindURIAndValidate call, with field details for validation failures.
func HandleBindError(c *gin.Context, err error) {
	var resp *ErrorResponse

	if IsValidationError(err) {
		resp = NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", ValidationErrors(err))
	} else {
		resp = NewErrorResponse(ErrorCodeBadRequest, "malformed request parameters")
	}

	c.JSON(http.StatusBadRequest, resp.WithTraceID(GetTraceID(c)))
}
