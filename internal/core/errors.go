// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
// Message is safe to show to the user; Cause is for logs only.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Backtest service errors
	ErrBacktestFailed        = &Error{Code: "BACKTEST_FAILED", Message: "回测失败，请检查股票代码是否正确或稍后重试"}
	ErrStrategiesUnavailable = &Error{Code: "STRATEGIES_UNAVAILABLE", Message: "strategy list unavailable"}

	// Session errors
	ErrNoStrategy       = &Error{Code: "NO_STRATEGY", Message: "请选择一个策略开始回测"}
	ErrBacktestBusy     = &Error{Code: "BACKTEST_BUSY", Message: "正在运行回测，请稍候..."}
	ErrSessionNotFound  = &Error{Code: "SESSION_NOT_FOUND", Message: "session not found"}
	ErrInvalidDateRange = &Error{Code: "INVALID_DATE_RANGE", Message: "时间格式应为YYYYMMDD"}
	ErrInvalidRequest   = &Error{Code: "INVALID_REQUEST", Message: "请求参数无效"}

	// Upload errors
	ErrUploadType = &Error{Code: "UPLOAD_INVALID", Message: "只支持JPG和PNG格式的图片"}
	ErrUploadSize = &Error{Code: "UPLOAD_INVALID", Message: "图片大小不能超过5MB"}
	ErrUploadDims = &Error{Code: "UPLOAD_INVALID", Message: "图片尺寸不能超过4096x4096像素"}

	// Export errors
	ErrExportTarget = &Error{Code: "EXPORT_TARGET_MISSING", Message: "未找到要导出的元素"}
	ErrExportFailed = &Error{Code: "EXPORT_FAILED", Message: "导出失败，请重试"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
