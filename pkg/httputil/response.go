package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/logger"
	pkgvalidator "github.com/carehospital/admin-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) Response {
	return Response{Status: "error", Message: message}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithNotice sends a success response carrying a user-facing notice.
func RespondWithNotice(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Status: "success", Message: message, Data: data})
}

// RespondWithError maps err onto an HTTP status and a JSON notice.
// Unknown errors become a 500 with a generic message and are logged.
func RespondWithError(c *gin.Context, err error) {
	status, message := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// BindError answers a request whose body or query could not be bound.
func BindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(pkgvalidator.Humanize(err).Error()))
}

// Classify returns the HTTP status and client message for err.
func Classify(err error) (int, string) {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode(), appErr.Message
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, pkgvalidator.Humanize(err).Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}
