package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode типизированный код ошибки уровня приложения.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeConflict     ErrorCode = "CONFLICT_ALREADY_RESOLVED"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError ошибка с кодом, сообщением и HTTP статусом.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is позволяет сравнивать AppError через errors.Is по коду.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code && e.Message == appErr.Message
}

// New создаёт новую ошибку приложения.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap оборачивает ошибку нижнего уровня.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено".
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

// IsInvalidState проверяет, является ли ошибка недопустимым переходом статуса.
func IsInvalidState(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidState
}

// IsConflict проверяет, проиграла ли операция конкурентному решению.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

// Типовые ошибки домена.
var (
	ErrReportNotFound       = New(ErrCodeNotFound, "report not found")
	ErrReportDeleted        = New(ErrCodeNotFound, "report has been deleted")
	ErrClaimNotFound        = New(ErrCodeNotFound, "claim not found")
	ErrMatchNotFound        = New(ErrCodeNotFound, "match not found")
	ErrNotificationNotFound = New(ErrCodeNotFound, "notification not found")
	ErrUserNotFound         = New(ErrCodeNotFound, "user not found")
	ErrReportNotEditable    = New(ErrCodeInvalidState, "only pending reports can be edited")
	ErrReportNotPending     = New(ErrCodeInvalidState, "report status is not pending")
	ErrClaimAlreadyResolved = New(ErrCodeConflict, "claim has already been resolved")
	ErrReportAlreadyClaimed = New(ErrCodeConflict, "report has already been claimed")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "authorization required")
	ErrForbidden            = New(ErrCodeForbidden, "insufficient permissions")
)
