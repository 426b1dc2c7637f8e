package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"witwaves/internal/models"
	"witwaves/internal/observability"
)

// ActionResult is what every mutation action returns. Actions never return
// a Go error; failures are described here.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Code is the models error code of a failed action.
	Code   string              `json:"code,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	// Revalidate lists the view keys the action made stale.
	Revalidate []string `json:"revalidate,omitempty"`
	Data       any      `json:"data,omitempty"`
}

// Fields is a submitted form: field name to raw value.
type Fields map[string]string

// Get returns the trimmed value of key.
func (f Fields) Get(key string) string {
	return strings.TrimSpace(f[key])
}

// Raw returns the value of key as submitted.
func (f Fields) Raw(key string) string {
	return f[key]
}

// Bool reads a checkbox-style flag ("true", "on", "1").
func (f Fields) Bool(key string) bool {
	v := strings.ToLower(f.Get(key))
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func succeed(action, message string, data any, keys []string) ActionResult {
	observability.RecordAction(action, "success")
	return ActionResult{Success: true, Message: message, Data: data, Revalidate: keys}
}

func invalid(action, message string, fields map[string][]string) ActionResult {
	observability.RecordAction(action, "invalid")
	return ActionResult{Success: false, Message: message, Code: models.CodeValidation, Errors: fields}
}

// fail converts err into a failed result. Store and transport errors are
// logged and their message is carried to the caller.
func fail(ctx context.Context, action string, err error) ActionResult {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			return invalid(action, appErr.Message, appErr.Fields)
		case models.CodeUnauthorized:
			observability.RecordAction(action, "forbidden")
		case models.CodeNotFound:
			observability.RecordAction(action, "not_found")
		default:
			observability.RecordAction(action, "error")
			observability.GlobalLogger.ErrorContext(ctx, "action failed",
				slog.String("action", action), slog.String("error", err.Error()))
		}
		return ActionResult{Success: false, Message: appErr.Error(), Code: appErr.Code, Errors: appErr.Fields}
	}

	observability.RecordAction(action, "error")
	observability.GlobalLogger.ErrorContext(ctx, "action failed",
		slog.String("action", action), slog.String("error", err.Error()))
	return ActionResult{
		Success: false,
		Message: fmt.Sprintf("Something went wrong: %v", err),
		Code:    models.CodeInternal,
	}
}

// perform runs fn inside an action span. A panic becomes a failed result.
func perform(ctx context.Context, action string, fn func(context.Context) ActionResult) (res ActionResult) {
	ctx, span := observability.StartAction(ctx, action)
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.ErrorContext(ctx, "action panicked",
				slog.String("action", action), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			res = fail(ctx, action, fmt.Errorf("unexpected failure: %v", r))
		}
		var err error
		if !res.Success {
			err = errors.New(res.Message)
		}
		observability.EndSpan(span, err)
	}()
	return fn(ctx)
}
