package port

import "errors"

// Sentinel errors used across ports. Pipeline failures are wrapped around
// these so handlers can map them to response codes with errors.Is without
// parsing provider messages.
var (
	// ErrValidation marks bad input rejected before any pipeline work begins.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyDocument means the uploaded document yielded no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrEmbedding wraps embedding provider failures. No partial results are
	// ever returned; the caller decides on retry.
	ErrEmbedding = errors.New("embedding provider failure")

	// ErrIndexUnavailable wraps vector index transport failures.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrNoResumeData is the normal (non-exceptional) outcome of a retrieval
	// that found nothing indexed for the requested source tag. It must stay
	// distinguishable from transport failures.
	ErrNoResumeData = errors.New("no resume data indexed for this source")

	// ErrGeneration wraps language model failures during extraction or
	// letter composition.
	ErrGeneration = errors.New("generation provider failure")

	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrCVNotFound         = errors.New("cv not found")
)
