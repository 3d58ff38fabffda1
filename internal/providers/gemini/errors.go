package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelmux/modelmux/pkg/aimodel"
)

// statusError represents an HTTP error response from the Gemini API.
type statusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// mapError translates Gemini and network errors into typed
// aimodel.ProviderError values.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return aimodel.NewProviderError(aimodel.ErrCodeTimeout, "request timed out or cancelled", err)
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 401 || se.StatusCode == 403:
			return aimodel.NewProviderError(aimodel.ErrCodeAuthentication, se.Message, err)
		case se.StatusCode == 429 || se.Status == "RESOURCE_EXHAUSTED":
			return aimodel.NewProviderError(aimodel.ErrCodeRateLimit, se.Message, err)
		case se.StatusCode == 404:
			return aimodel.NewProviderError(aimodel.ErrCodeModelNotFound, se.Message, err)
		case se.StatusCode >= 500:
			return aimodel.NewProviderError(aimodel.ErrCodeServerError, se.Message, err)
		case se.StatusCode >= 400:
			return aimodel.NewProviderError(aimodel.ErrCodeInvalidRequest, se.Message, err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return aimodel.NewProviderError(aimodel.ErrCodeServerError, "gemini server unreachable", err)
	}

	return aimodel.NewProviderError(aimodel.ErrCodeServerError, "gemini error", err)
}
