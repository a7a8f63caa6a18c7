package model

import "errors"

var (
	// ErrNotFound is returned when the requested session does not exist.
	ErrNotFound = errors.New("chat session not found")
	// ErrInvalidArgument is returned for blank or malformed client input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProviderInit is returned when the first provider call of a new session fails
	// or yields no continuation handle.
	ErrProviderInit = errors.New("failed to initialize chat context with AI")
	// ErrProviderCall is returned when a follow-up provider call fails or yields no
	// conversational text.
	ErrProviderCall = errors.New("failed to get AI response")
	// ErrMalformedResponse is returned when the provider reports success without any
	// extractable text.
	ErrMalformedResponse = errors.New("response completed but no assistant text output found")
	// ErrStoreUnavailable is returned when the persistence backend fails.
	ErrStoreUnavailable = errors.New("session store unavailable")
)
