package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a backend failure. The orchestrator branches on Kind only.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindQuota
	KindCredential
	KindMalformed
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindQuota:
		return "quota_exhausted"
	case KindCredential:
		return "invalid_credential"
	case KindMalformed:
		return "malformed_payload"
	case KindUnavailable:
		return "unavailable"
	default:
		return "other"
	}
}

// RequiresCredentials reports whether the user has to select another key
func (k Kind) RequiresCredentials() bool {
	return k == KindQuota || k == KindCredential
}

// Error is returned by every Client call that fails
type Error struct {
	Kind       Kind
	StatusCode int
	Status     string // provider status, e.g. RESOURCE_EXHAUSTED
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Status != "":
		return fmt.Sprintf("backend %s (status %d %s): %s", e.Kind, e.StatusCode, e.Status, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("backend %s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf maps any error to a Kind. Errors that did not come from this
// package are classified from context and net timeouts only.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}

	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindOther
}

// Malformed builds the error used when a reply has no usable payload
func Malformed(message string) *Error {
	return &Error{Kind: KindMalformed, Message: message}
}

// classifyStatus maps an HTTP status and provider status string to a Kind
func classifyStatus(statusCode int, status string) Kind {
	switch strings.ToUpper(status) {
	case "RESOURCE_EXHAUSTED":
		return KindQuota
	case "PERMISSION_DENIED", "UNAUTHENTICATED", "NOT_FOUND", "API_KEY_INVALID":
		return KindCredential
	case "DEADLINE_EXCEEDED":
		return KindTimeout
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return KindQuota
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return KindCredential
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	case http.StatusServiceUnavailable:
		return KindUnavailable
	}

	return KindOther
}

// classifyMessage catches API key problems reported as INVALID_ARGUMENT
func classifyMessage(kind Kind, message string) Kind {
	if kind != KindOther {
		return kind
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "api key not valid") || strings.Contains(lower, "api_key_invalid") {
		return KindCredential
	}
	return kind
}
