package providers

import (
	"errors"
	"fmt"

	dErrors "tradegraph/pkg/domain-errors"
)

// ErrorCategory classifies why a screening call failed. Providers map their
// transport and payload failures onto these so the service can decide on
// retries without knowing the provider.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// ErrNoProvider is returned when a check names a kind nobody registered.
var ErrNoProvider = errors.New("no screening provider registered for this kind")

// transient categories are worth another attempt after backoff.
var transient = map[ErrorCategory]bool{
	ErrorTimeout:        true,
	ErrorProviderOutage: true,
	ErrorRateLimited:    true,
}

// Retryable reports whether a failure of this category may succeed later.
func (c ErrorCategory) Retryable() bool {
	return transient[c]
}

// DomainCode is the API error code a caller sees once retries are exhausted.
// A garbled payload counts as the upstream being unavailable; credentials
// and internal faults are ours to fix.
func (c ErrorCategory) DomainCode() dErrors.Code {
	switch c {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited, ErrorBadData:
		return dErrors.CodeUpstreamUnavailable
	default:
		return dErrors.CodeInternal
	}
}

// ProviderError is a categorized failure from a single provider call.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

// NewProviderError builds a ProviderError whose retry flag follows the
// category.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  category.Retryable(),
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", e.ProviderID, e.Message, e.Category)
	if e.Underlying == nil {
		return msg
	}
	return msg + ": " + e.Underlying.Error()
}

func (e *ProviderError) Unwrap() error { return e.Underlying }

// IsRetryable is false for anything that is not a ProviderError.
func IsRetryable(err error) bool {
	if pe, ok := asProviderError(err); ok {
		return pe.Retryable
	}
	return false
}

// GetCategory falls back to ErrorInternal for uncategorized errors.
func GetCategory(err error) ErrorCategory {
	if pe, ok := asProviderError(err); ok {
		return pe.Category
	}
	return ErrorInternal
}

func asProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}
