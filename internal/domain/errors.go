package domain

import "errors"

// AuthError is fatal to connection establishment. Its text is the reason
// reported to the client.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

var (
	ErrAuth              = errors.New("auth error")
	ErrNoCredential      = &AuthError{Reason: "no credential"}
	ErrInvalidCredential = &AuthError{Reason: "invalid credential"}

	ErrRoomNotFound   = errors.New("room not found")
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message too long")
	ErrNotAMember     = errors.New("not a member of room")
	ErrRateLimited    = errors.New("rate limited")

	// ErrStore wraps any persistence failure.
	ErrStore = errors.New("store unavailable")
)
