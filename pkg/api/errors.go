package api

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// Error 错误类型（带堆栈）
type Error struct {
	Code    ErrorCode
	Message string
	Status  driver.Status // 触发错误的驱动状态码, 本地错误为 0
	Stack   []string      // 调用堆栈
	Cause   error         // 原始错误
}

// ErrorCode 错误码
type ErrorCode string

const (
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION"
	ErrCodeConnection     ErrorCode = "CONNECTION"
	ErrCodeTransaction    ErrorCode = "TRANSACTION"
	ErrCodeGeneric        ErrorCode = "GENERIC"
	ErrCodeTypeMismatch   ErrorCode = "TYPE_MISMATCH"
	ErrCodeInvalidParam   ErrorCode = "INVALID_PARAM"
)

// unknownErrorMessage is reported when the driver gave no usable message.
const unknownErrorMessage = "Unknown error."

// Error 接口实现
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace 返回调用堆栈
func (e *Error) StackTrace() []string {
	return e.Stack
}

// NewError 创建错误
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   cause,
	}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是我们的错误类型，保留原有堆栈
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return &Error{
			Code:    code,
			Message: message,
			Status:  apiErr.Status,
			Stack:   apiErr.Stack,
			Cause:   apiErr,
		}
	}

	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   err,
	}
}

// ErrorCodeForStatus maps a failed driver status onto an error kind.
//
//	authentication failed                    -> AUTHENTICATION
//	open/close session failed                -> CONNECTION
//	begin/commit/rollback transaction failed -> TRANSACTION
//	anything else                            -> GENERIC
func ErrorCodeForStatus(status driver.Status) ErrorCode {
	switch status {
	case driver.StatusAuthenticationFailed:
		return ErrCodeAuthentication
	case driver.StatusOpenSessionFailed, driver.StatusCloseSessionFailed:
		return ErrCodeConnection
	case driver.StatusBeginTransactionFailed,
		driver.StatusCommitTransactionFailed,
		driver.StatusRollbackTransactionFailed:
		return ErrCodeTransaction
	default:
		return ErrCodeGeneric
	}
}

// ParseErrorMessage extracts the user facing message from the driver's
// last-error text. The first line is a preamble, the second line is the
// message, possibly empty. "Unknown error." is used only when there is no
// second line. A "Details:" section, when present, is appended in parentheses
// with its newlines folded into spaces.
func ParseErrorMessage(raw string) string {
	nl := strings.IndexByte(raw, '\n')
	if nl < 0 {
		return unknownErrorMessage
	}

	details := ""
	hasDetails := false
	if idx := strings.Index(raw[nl:], "\nDetails: "); idx >= 0 {
		details = raw[nl+idx+len("\nDetails: "):]
		hasDetails = true
	}

	msg := raw[nl+1:]
	if end := strings.IndexByte(msg, '\n'); end >= 0 {
		msg = msg[:end]
	}
	msg = strings.TrimSuffix(msg, "\r")

	if !hasDetails {
		return msg
	}
	details = strings.ReplaceAll(strings.TrimRight(details, "\r\n"), "\n", " ")
	return fmt.Sprintf("%s (%s)", msg, details)
}

// TranslateError builds the error for a failed driver call from its status
// and the driver's last-error text.
func TranslateError(status driver.Status, lastError string) *Error {
	return &Error{
		Code:    ErrorCodeForStatus(status),
		Message: ParseErrorMessage(lastError),
		Status:  status,
		Stack:   captureStackTrace(),
	}
}

// captureStackTrace 捕获调用堆栈
func captureStackTrace() []string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc) // 跳过前3层

	if n == 0 {
		return []string{}
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()

		fn := frame.Function
		file := frame.File

		if idx := strings.LastIndex(file, "/"); idx != -1 {
			file = file[idx+1:]
		}
		if idx := strings.LastIndex(fn, "/"); idx != -1 {
			fn = fn[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("  at %s (%s:%d)", fn, file, frame.Line))
		if !more {
			break
		}
	}

	return stack
}

// IsErrorCode 检查错误码
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code && code != ""
}

// GetErrorCode 获取错误码
func GetErrorCode(err error) ErrorCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsAuthenticationError reports whether err was caused by rejected credentials.
func IsAuthenticationError(err error) bool { return IsErrorCode(err, ErrCodeAuthentication) }

// IsConnectionError reports whether err is a connection failure or a call on
// a closed session.
func IsConnectionError(err error) bool { return IsErrorCode(err, ErrCodeConnection) }

// IsTransactionError reports whether err is a transaction failure.
func IsTransactionError(err error) bool { return IsErrorCode(err, ErrCodeTransaction) }

// IsGenericError reports whether err is a query or data error.
func IsGenericError(err error) bool { return IsErrorCode(err, ErrCodeGeneric) }
