package perrors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeInvalidRequest   ErrCode = ErrCode{"invalid_request", http.StatusBadRequest}
	ErrCodeInternalServer           = ErrCode{"internal_server_error", http.StatusInternalServerError}
	ErrCodeNotFound                 = ErrCode{"not_found", http.StatusNotFound}
	ErrCodeConflict                 = ErrCode{"conflict", http.StatusConflict}
	ErrCodeUnauthorized             = ErrCode{"unauthorized", http.StatusUnauthorized}
	ErrCodeForbidden                = ErrCode{"forbidden", http.StatusForbidden}
	ErrCodeTooManyRequests          = ErrCode{"too_many_requests", http.StatusTooManyRequests}
)

// Err carries an HTTP facing code, a client safe Message and the underlying cause.
type Err struct {
	Message    string                   `json:"-"`
	Err        string                   `json:"error"`
	Code       ErrCode                  `json:"-"`
	Stacktrace []string                 `json:"-"`
	Args       []map[string]interface{} `json:"args"`
}

func (e Err) Error() string {
	return e.Err
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

func (e Err) Print(ctx context.Context) {
	args := []any{slog.Any("error", e.Error()), slog.String("code", e.Code.Code)}
	if len(e.Args) > 0 {
		for k, v := range e.Args[0] {
			args = append(args, slog.Any(k, v))
		}
	}
	args = append(args, slog.Any("stacktrace", e.Stacktrace))
	if e.Code.Status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, e.Message, args...)
		return
	}
	slog.WarnContext(ctx, e.Message, args...)
}

func New(code ErrCode, msg string, err error, args ...map[string]interface{}) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(1, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	errString := "error missing"
	if err != nil {
		errString = err.Error()
	}

	return Err{
		Code:       code,
		Message:    msg,
		Err:        errString,
		Stacktrace: stacktrace,
		Args:       args,
	}
}

// As unwraps err into an Err when it carries one.
func As(err error) (Err, bool) {
	var perr Err
	if errors.As(err, &perr) {
		return perr, true
	}
	return Err{}, false
}

func NewErrInvalidRequest(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInvalidRequest, msg, err, args...)
}

func NewErrInternalServerError(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInternalServer, msg, err, args...)
}

// NewErrUnauthorized reports that the caller's identity could not be established.
func NewErrUnauthorized(reason string, err error, args ...map[string]interface{}) error {
	if err == nil {
		err = errors.New(reason)
	}
	return New(ErrCodeUnauthorized, reason, err, args...)
}

// NewErrForbidden reports an established identity lacking privilege.
func NewErrForbidden(reason string, err error, args ...map[string]interface{}) error {
	if err == nil {
		err = errors.New(reason)
	}
	return New(ErrCodeForbidden, reason, err, args...)
}

func NewErrNotFound(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeNotFound, msg, err, args...)
}

func NewErrConflict(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeConflict, msg, err, args...)
}
