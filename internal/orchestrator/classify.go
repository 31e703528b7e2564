package orchestrator

import (
	"errors"
	"strings"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/gateway"
)

// classifiedError is the resolved verdict from spec §4.5's error
// classifier: every send/store failure funnels through here before it
// becomes an HTTP response or a log entry.
type classifiedError struct {
	ErrorType string // InvalidToken, PayloadTooLarge, InternalError
	ErrorCode string
	ErrorStep string
	Message   string
}

// shouldLog reports whether this classification should produce a
// structured errors-<step> log entry. InvalidToken and PayloadTooLarge
// are client-caused and noisy; only InternalError is logged.
func (c classifiedError) shouldLog() bool {
	return c.ErrorType == "InternalError"
}

// classify maps a gateway or store error, plus the processing step name,
// to a classifiedError. A *gateway.Error carries a recognized dash-separated
// code directly; any other error (store failures, unclassified gateway
// errors) is matched against its message text before falling back to
// InternalError.
func classify(err error, step string) classifiedError {
	code := ""
	message := err.Error()

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		code = gwErr.Code
		message = gwErr.Message
	}

	lower := strings.ToLower(message)

	switch {
	case code == "invalid-registration-token" || code == "registration-token-not-registered":
		return classifiedError{ErrorType: "InvalidToken", ErrorCode: code, ErrorStep: step, Message: message}
	case code == "invalid-argument" || code == "payload-too-large",
		strings.Contains(lower, "message is too big"),
		strings.Contains(lower, "payload too large"):
		return classifiedError{ErrorType: "PayloadTooLarge", ErrorCode: code, ErrorStep: step, Message: message}
	default:
		return classifiedError{ErrorType: "InternalError", ErrorCode: code, ErrorStep: step, Message: message}
	}
}
