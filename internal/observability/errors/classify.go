// Package errors maps errors to short class names used as metric and log tags.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	apperrors "github.com/voicebot/consultd/internal/errors"
)

// Well-known classes returned ahead of the type-derived fallback.
const (
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
)

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// Application errors map to their code, timeouts and cancellations to fixed classes,
// and everything else to the innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) && appErr.Code != "" {
		return string(appErr.Code)
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	if goerrors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
