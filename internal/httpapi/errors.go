package httpapi

import (
	"errors"
	"net/http"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/gin-gonic/gin"
)

// APIError is the error body of every failed request.
type APIError struct {
	Message    string             `json:"message"`
	Code       string             `json:"code"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindParentNotVisible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	body := APIError{Message: err.Error(), Code: string(kind)}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		body.Violations = rv.Result.Violations
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		body.Message = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}
