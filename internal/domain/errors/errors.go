// Package errors defines application-level errors carrying both an HTTP
// status and a business error code, consumed by the gateway error middleware.
package errors

import (
	"net/http"

	"pulse/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Authentication-related errors
	ErrTokenMissing = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_MISSING",
		"缺少存取權杖",
		"",
	)

	ErrTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"TOKEN_INVALID",
		"無效或已過期的權杖",
		"",
	)

	ErrRoleForbidden = NewBaseError(
		http.StatusForbidden,
		"ROLE_FORBIDDEN",
		"目前角色沒有權限執行此操作",
		"",
	)

	// Realtime channel errors
	ErrChannelUpgradeFailed = NewBaseError(
		http.StatusBadRequest,
		"CHANNEL_UPGRADE_FAILED",
		"即時通道建立失敗",
		"",
	)

	ErrPollTimeout = NewBaseError(
		http.StatusRequestTimeout,
		"POLL_TIMEOUT",
		"輪詢逾時，請重新連線",
		"",
	)

	// Order-related errors
	ErrOrderNotFound = NewBaseError(
		http.StatusNotFound,
		"ORDER_NOT_FOUND",
		"找不到該訂單",
		"",
	)

	// Device-related errors
	ErrDeviceNotFound = NewBaseError(
		http.StatusNotFound,
		"DEVICE_NOT_FOUND",
		"找不到該裝置",
		"",
	)

	ErrDeviceRegisterFailed = NewBaseError(
		http.StatusInternalServerError,
		"DEVICE_REGISTER_FAILED",
		"裝置註冊失敗",
		"",
	)

	// Notification-related errors
	ErrNotificationSendFailed = NewBaseError(
		http.StatusInternalServerError,
		"NOTIFICATION_SEND_FAILED",
		"通知發送失敗",
		"",
	)

	// QR code errors
	ErrQRCodeGenerationFailed = NewBaseError(
		http.StatusInternalServerError,
		"QRCODE_GENERATION_FAILED",
		"QR Code 產生失敗",
		"",
	)

	// Generic errors
	ErrBadRequest = NewBaseError(
		http.StatusBadRequest,
		"BAD_REQUEST",
		"請求格式錯誤",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"找不到該資源",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "資料庫執行錯誤"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}
