package generation

import (
	"errors"
	"strings"
)

// User-facing messages. Raw provider errors are logged, never shown.
const (
	MessageCredentials   = "Invalid or missing API key. Please check your configuration."
	MessageCommunication = "Failed to communicate with the AI model."
)

// ErrCredentials marks a provider failure caused by a missing or rejected
// API key.
var ErrCredentials = errors.New("invalid or missing api key")

// ProviderError is a failed provider call. Message is safe to show to the
// user; Err keeps the raw cause for logs.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify maps a raw provider error to a short user-facing message.
func Classify(err error) string {
	if errors.Is(err, ErrCredentials) {
		return MessageCredentials
	}
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "api key") {
		return MessageCredentials
	}
	return MessageCommunication
}

func newProviderError(err error) *ProviderError {
	return &ProviderError{Message: Classify(err), Err: err}
}
