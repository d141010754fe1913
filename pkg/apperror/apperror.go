// Package apperror carries an HTTP status and a machine-readable code
// alongside an error so handlers can render failures uniformly.
package apperror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodePaymentRequired  = "PAYMENT_REQUIRED"
	CodeUnprocessable    = "UNPROCESSABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	internalErrorMessage = "Internal server error"
)

type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func Unauthorized(code, message string) *AppError {
	if code == "" {
		code = CodeUnauthorized
	}
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *AppError {
	if code == "" {
		code = CodeForbidden
	}
	return New(http.StatusForbidden, code, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(code, message string) *AppError {
	if code == "" {
		code = CodeConflict
	}
	return New(http.StatusConflict, code, message)
}

func InvalidStatus(message string) *AppError {
	return New(http.StatusConflict, CodeInvalidStatus, message)
}

func PaymentRequired(code, message string) *AppError {
	if code == "" {
		code = CodePaymentRequired
	}
	return New(http.StatusPaymentRequired, code, message)
}

func Unprocessable(code, message string) *AppError {
	if code == "" {
		code = CodeUnprocessable
	}
	return New(http.StatusUnprocessableEntity, code, message)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited, message)
}

func Unavailable(message string) *AppError {
	return New(http.StatusServiceUnavailable, CodeUnavailable, message)
}

func Internal(err error) *AppError {
	return Wrap(err, http.StatusInternalServerError, CodeInternal, internalErrorMessage)
}

// FromDB maps gorm.ErrRecordNotFound to a NotFound error naming the resource.
func FromDB(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(resource + " not found")
	}
	return err
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Respond writes err as the JSON error envelope and aborts the chain.
func Respond(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"code":    CodeValidation,
			"details": details,
		})
		return
	}

	if appErr, ok := As(err); ok {
		message := appErr.Message
		if appErr.Status >= http.StatusInternalServerError && message == "" {
			message = internalErrorMessage
		}
		c.AbortWithStatusJSON(appErr.Status, gin.H{"error": message, "code": appErr.Code})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": internalErrorMessage,
		"code":  CodeInternal,
	})
}

// BindError renders a binding failure. Malformed bodies become BAD_REQUEST,
// rule violations VALIDATION_FAILED.
func BindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		Respond(c, err)
		return
	}
	Respond(c, BadRequest("Invalid request body"))
}
