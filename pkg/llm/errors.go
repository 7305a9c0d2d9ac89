package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the provider responds with no text
var ErrEmptyCompletion = errors.New("empty completion")

// ProviderError is a failure reported by the text-generation provider
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}
