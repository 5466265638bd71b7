package twitter

import (
	"errors"
	"fmt"
)

// Provider error codes the orchestrator cares about. 88 and 187 are the
// classic statuses/update error codes; 429 covers HTTP-level throttling
// responses that carry no body code.
const (
	CodeRateLimitExceeded = 88
	CodeDuplicateStatus   = 187
	CodeTooManyRequests   = 429
)

// ProviderError is a typed error returned by the publish transport.
// Code carries the provider's error code; everything the orchestrator
// does not recognize is treated as non-retryable.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("twitter: provider error %d: %s", e.Code, e.Message)
}

// AsProviderError unwraps err into a *ProviderError if possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRateLimit reports whether err is a rate-limit provider error.
func IsRateLimit(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && (pe.Code == CodeRateLimitExceeded || pe.Code == CodeTooManyRequests)
}

// IsDuplicate reports whether err is a duplicate-content provider error.
func IsDuplicate(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Code == CodeDuplicateStatus
}
