package domain

import "errors"

var (
	// ErrNotFound signals a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals bad input shape or content.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQueryTooShort signals a search query below the minimum length.
	ErrQueryTooShort = errors.New("query too short")
	// ErrProviderUnavailable signals a missing or unconfigured embedding provider.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrScanLimitExceeded signals that the fallback scan would exceed the candidate ceiling.
	ErrScanLimitExceeded = errors.New("candidate scan limit exceeded")
)
